package appointment

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetworks/workshop/adapter/cli"
	internalApp "github.com/fleetworks/workshop/internal/app"
	"github.com/fleetworks/workshop/internal/appointments/application/commands"
	"github.com/fleetworks/workshop/internal/appointments/application/queries"
	"github.com/fleetworks/workshop/internal/appointments/domain"
	"github.com/fleetworks/workshop/pkg/config"
)

var testOperatorID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// setupTestApp wires the CLI over in-memory repositories in UTC.
func setupTestApp(t *testing.T) *cli.App {
	t.Helper()

	cfg := &config.Config{
		AppEnv:         "test",
		Timezone:       "UTC",
		DayStart:       "09:00",
		DayEnd:         "19:00",
		SlotMinutes:    60,
		LeadTime:       domain.MinimumLeadTime,
		RequestTimeout: 5 * time.Second,
	}
	require.NoError(t, cfg.Validate())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	container := internalApp.NewInMemoryContainer(cfg, logger)

	app := cli.NewApp(container.Scheduler, testOperatorID, cfg.Location())
	cli.SetApp(app)
	t.Cleanup(func() {
		cli.SetApp(nil)
		cli.SetJSONOutput(false)
	})
	resetFlags()
	return app
}

func resetFlags() {
	plate, driver, visitReason, towAddress, damageImage, requestedAt = "", "", "", "", "", ""
	tow, maintenance = false, false
	status, filterMechanic, fromDay, toDay, limit = "", "", "", "", 0
	slotsDay = ""
	assignMechanic, assignAt, assignReason = "", "", ""
	cancelComment = ""
}

// run executes a subcommand and returns what it printed.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	t.Cleanup(func() { cmd.SetOut(nil) })

	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func futureDay() time.Time {
	d := time.Now().UTC().AddDate(0, 0, 2)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func requestOne(t *testing.T, app *cli.App, vehicle string) queries.AppointmentDTO {
	t.Helper()
	appt, err := app.Backend.RequestAppointment(context.Background(), commands.RequestAppointmentCommand{
		OperatorID:     testOperatorID,
		VehiclePlate:   vehicle,
		ReasonForVisit: "inspection",
	})
	require.NoError(t, err)
	return *appt
}

func registerMechanic(t *testing.T, app *cli.App, name string) queries.MechanicDTO {
	t.Helper()
	m, err := app.Backend.RegisterMechanic(context.Background(), commands.RegisterMechanicCommand{Name: name})
	require.NoError(t, err)
	return *m
}

func TestRequestCmd_CreatesAppointment(t *testing.T) {
	app := setupTestApp(t)

	plate = "hkrt21"
	visitReason = "brake noise"
	maintenance = true

	out, err := run(t, requestCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Appointment requested:")
	assert.Contains(t, out, "HKRT21")

	appts, err := app.Backend.ListAppointments(context.Background(), queries.ListAppointmentsQuery{})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "HKRT21", appts[0].VehiclePlate)
	assert.Equal(t, testOperatorID, appts[0].CreatedBy)
	assert.True(t, appts[0].Maintenance)
	assert.Equal(t, "Programado", appts[0].Status)
}

func TestRequestCmd_Validation(t *testing.T) {
	setupTestApp(t)

	t.Run("missing reason", func(t *testing.T) {
		resetFlags()
		plate = "HKRT21"

		_, err := run(t, requestCmd)
		assert.ErrorIs(t, err, domain.ErrMissingVisitReason)
	})

	t.Run("tow without address", func(t *testing.T) {
		resetFlags()
		plate = "HKRT21"
		visitReason = "no start"
		tow = true

		_, err := run(t, requestCmd)
		assert.ErrorIs(t, err, domain.ErrMissingTowAddress)
	})

	t.Run("bad preferred time", func(t *testing.T) {
		resetFlags()
		plate = "HKRT21"
		visitReason = "no start"
		requestedAt = "next tuesday"

		_, err := run(t, requestCmd)
		assert.ErrorContains(t, err, "invalid time")
	})
}

func TestAssignCmd_ConfirmsAndBooksSlot(t *testing.T) {
	app := setupTestApp(t)
	mechanic := registerMechanic(t, app, "Rosa")
	appt := requestOne(t, app, "HKRT21")
	day := futureDay()

	assignMechanic = mechanic.ID.String()
	assignAt = day.Format(time.DateOnly) + " 10:00"

	out, err := run(t, assignCmd, appt.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Confirmado")
	assert.Contains(t, out, day.Format(time.DateOnly)+" 10:00")

	t.Run("the slot disappears from the offer", func(t *testing.T) {
		slotsDay = day.Format(time.DateOnly)
		out, err := run(t, slotsCmd, mechanic.ID.String())
		require.NoError(t, err)
		assert.NotContains(t, out, "10:00")
		assert.Contains(t, out, "09:00")
		assert.Contains(t, out, "11:00")
	})

	t.Run("moving without a reason is rejected", func(t *testing.T) {
		assignAt = day.Format(time.DateOnly) + " 15:00"
		assignReason = ""
		_, err := run(t, assignCmd, appt.ID.String())
		assert.ErrorIs(t, err, domain.ErrMissingReason)
	})

	t.Run("moving with a reason reschedules", func(t *testing.T) {
		assignAt = day.Format(time.DateOnly) + " 15:00"
		assignReason = "parts delayed"
		out, err := run(t, assignCmd, appt.ID.String())
		require.NoError(t, err)
		assert.Contains(t, out, " 15:00")
	})

	t.Run("history lists every change", func(t *testing.T) {
		out, err := run(t, historyCmd, appt.ID.String())
		require.NoError(t, err)
		assert.Contains(t, out, "Programado")
		assert.Contains(t, out, "Confirmado")
	})
}

func TestAssignCmd_InvalidInput(t *testing.T) {
	app := setupTestApp(t)
	appt := requestOne(t, app, "HKRT21")

	t.Run("invalid appointment id", func(t *testing.T) {
		_, err := run(t, assignCmd, "not-a-uuid")
		assert.ErrorContains(t, err, "invalid appointment ID")
	})

	t.Run("invalid time", func(t *testing.T) {
		assignMechanic = uuid.New().String()
		assignAt = "ten o'clock"
		_, err := run(t, assignCmd, appt.ID.String())
		assert.ErrorContains(t, err, "invalid time")
	})

	t.Run("missing mechanic", func(t *testing.T) {
		assignMechanic = ""
		assignAt = futureDay().Format(time.DateOnly) + " 10:00"
		_, err := run(t, assignCmd, appt.ID.String())
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})
}

func TestCancelCmd(t *testing.T) {
	app := setupTestApp(t)
	appt := requestOne(t, app, "HKRT21")

	cancelComment = "customer called"
	out, err := run(t, cancelCmd, appt.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "cancelled")

	_, err = run(t, cancelCmd, appt.ID.String())
	assert.Equal(t, domain.KindTerminalStateViolation, domain.KindOf(err))
}

func TestListCmd(t *testing.T) {
	app := setupTestApp(t)

	t.Run("empty", func(t *testing.T) {
		out, err := run(t, listCmd)
		require.NoError(t, err)
		assert.Contains(t, out, "No appointments found.")
	})

	requestOne(t, app, "HKRT21")
	requestOne(t, app, "JJPX90")

	t.Run("text", func(t *testing.T) {
		out, err := run(t, listCmd)
		require.NoError(t, err)
		assert.Contains(t, out, "Appointments (2):")
		assert.Contains(t, out, "HKRT21")
		assert.Contains(t, out, "JJPX90")
	})

	t.Run("json", func(t *testing.T) {
		cli.SetJSONOutput(true)
		defer cli.SetJSONOutput(false)

		out, err := run(t, listCmd)
		require.NoError(t, err)

		var got []queries.AppointmentDTO
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Len(t, got, 2)
	})

	t.Run("unknown status", func(t *testing.T) {
		status = "Pendiente"
		defer func() { status = "" }()

		_, err := run(t, listCmd)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})

	t.Run("bad day", func(t *testing.T) {
		fromDay = "yesterday"
		defer func() { fromDay = "" }()

		_, err := run(t, listCmd)
		assert.ErrorContains(t, err, "invalid --from")
	})
}

func TestShowCmd(t *testing.T) {
	app := setupTestApp(t)
	registerMechanic(t, app, "Rosa")
	appt := requestOne(t, app, "HKRT21")

	out, err := run(t, showCmd, appt.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "HKRT21")
	assert.Contains(t, out, "Eligible mechanics:")
	assert.Contains(t, out, "Rosa")

	_, err = run(t, showCmd, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTowCmd(t *testing.T) {
	app := setupTestApp(t)
	appt, err := app.Backend.RequestAppointment(context.Background(), commands.RequestAppointmentCommand{
		OperatorID:     testOperatorID,
		VehiclePlate:   "BBCL44",
		ReasonForVisit: "no start",
		TowRequested:   true,
		TowAddress:     "Av. Matta 1200",
	})
	require.NoError(t, err)

	out, err := run(t, towCmd, appt.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Av. Matta 1200")
}

func TestCommands_RequireApp(t *testing.T) {
	cli.SetApp(nil)

	_, err := run(t, listCmd)
	assert.ErrorIs(t, err, cli.ErrNotInitialized)
}
