// Package turnos owns the turno lifecycle (PENDIENTE → EN_RUTA → FINALIZADO,
// with DESERTO absorbing runs that never start in time) and the append-only
// checkpoint ledger. It is the only writer of turnos.estado and marcados.
package turnos

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"rutacontrol-backend/internal/localtime"
	"rutacontrol-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Engine drives turno state transitions. Every read-then-write goes through
// an atomic conditional UPDATE (checking RowsAffected) or a transaction, so
// two concurrent starts or a start racing the reaper cannot double-apply.
type Engine struct {
	db            *sqlx.DB
	lateThreshold time.Duration
}

// NewEngine creates an engine with the configured lateness window.
func NewEngine(db *sqlx.DB, lateThreshold time.Duration) *Engine {
	return &Engine{db: db, lateThreshold: lateThreshold}
}

// EvaluateStart is the pure start guard: given the current estado, the
// scheduled hour and now, it returns nil when the transition to EN_RUTA is
// allowed, or the rejection that applies. Callers persist nothing here.
func EvaluateStart(estado models.TurnoEstado, scheduled, now time.Time, lateThreshold time.Duration) error {
	switch estado {
	case models.TurnoEnRuta:
		return ErrAlreadyStarted
	case models.TurnoDeserto:
		return ErrDeserto
	case models.TurnoFinalizado:
		return ErrFinalizado
	case models.TurnoPendiente:
		// fall through to the timing guards
	default:
		return ErrInvalidTransition
	}

	if now.Before(scheduled) {
		remaining := scheduled.Sub(now)
		minutes := int((remaining + time.Minute - 1) / time.Minute)
		return &TooEarlyError{MinutesLeft: minutes, Scheduled: scheduled}
	}
	if now.Sub(scheduled) > lateThreshold {
		return ErrPastThreshold
	}
	return nil
}

// StartResult reports a successful PENDIENTE → EN_RUTA transition.
type StartResult struct {
	Turno        models.Turno
	HoraInicio   time.Time
	RetrasoHoras int
}

// Start transitions a turno to EN_RUTA. On a turno past the lateness window
// it deserts it instead and returns ErrPastThreshold. The state write is a
// conditional UPDATE on estado=PENDIENTE; losing the race re-reads the row
// and reports the rejection matching the winner's state.
func (e *Engine) Start(turnoID, vehiculoID int64, now time.Time) (*StartResult, error) {
	var turno models.Turno
	err := e.db.Get(&turno,
		`SELECT * FROM turnos WHERE id = $1 AND fkidvehiculo = $2`,
		turnoID, vehiculoID)
	if err == sql.ErrNoRows {
		return nil, ErrTurnoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consultando turno %d: %w", turnoID, err)
	}

	guard := EvaluateStart(turno.Estado, turno.Hora, now, e.lateThreshold)
	if guard == ErrPastThreshold {
		if _, err := e.desert(turnoID, now); err != nil {
			return nil, err
		}
		log.Printf("⏳ Turno %d excede el límite de retraso - marcado como DESERTO", turnoID)
		return nil, ErrPastThreshold
	}
	if guard != nil {
		return nil, guard
	}

	res, err := e.db.Exec(
		`UPDATE turnos SET estado = $1, updated_at = $2 WHERE id = $3 AND estado = $4`,
		models.TurnoEnRuta, now, turnoID, models.TurnoPendiente)
	if err != nil {
		return nil, fmt.Errorf("iniciando turno %d: %w", turnoID, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		// Lost a race: somebody else transitioned the row first.
		var estado models.TurnoEstado
		if err := e.db.Get(&estado, `SELECT estado FROM turnos WHERE id = $1`, turnoID); err != nil {
			return nil, fmt.Errorf("releyendo turno %d: %w", turnoID, err)
		}
		return nil, EvaluateStart(estado, turno.Hora, now, e.lateThreshold)
	}

	turno.Estado = models.TurnoEnRuta
	retraso := int(now.Sub(turno.Hora).Hours())
	if retraso < 0 {
		retraso = 0
	}
	return &StartResult{Turno: turno, HoraInicio: now, RetrasoHoras: retraso}, nil
}

// Finalize transitions EN_RUTA → FINALIZADO. Any other current state is an
// invalid transition and leaves the row untouched.
func (e *Engine) Finalize(turnoID int64, now time.Time) error {
	var estado models.TurnoEstado
	err := e.db.Get(&estado, `SELECT estado FROM turnos WHERE id = $1`, turnoID)
	if err == sql.ErrNoRows {
		return ErrTurnoNotFound
	}
	if err != nil {
		return fmt.Errorf("consultando turno %d: %w", turnoID, err)
	}

	res, err := e.db.Exec(
		`UPDATE turnos SET estado = $1, updated_at = $2 WHERE id = $3 AND estado = $4`,
		models.TurnoFinalizado, now, turnoID, models.TurnoEnRuta)
	if err != nil {
		return fmt.Errorf("finalizando turno %d: %w", turnoID, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// ActiveResult is the outcome of resolving today's startable turno for a
// vehicle. Exactly one of the flags below describes it: an EN_RUTA turno in
// progress, a PENDIENTE candidate, or nothing usable.
type ActiveResult struct {
	SinTurnos        bool          // no turnos scheduled today
	EnCurso          *models.Turno // a turno is already EN_RUTA; nothing was mutated
	Candidato        *models.Turno // first PENDIENTE inside the lateness window
	PuedeIniciar     bool          // now >= scheduled hour
	MinutosRestantes int           // signed minutes until the candidate's hour
	Desertados       []int64       // stale PENDIENTE turnos reaped in this call
}

// ActiveShiftFor collects today's turnos for the vehicle, reports an EN_RUTA
// one as in progress before anything else, otherwise deserts every stale
// PENDIENTE turno and returns the first remaining candidate. The scan and
// reap run in one transaction and the reaping UPDATE re-checks estado, so
// repeated or concurrent calls converge on the same answer.
func (e *Engine) ActiveShiftFor(vehiculoID int64, now time.Time) (*ActiveResult, error) {
	tx, err := e.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("abriendo transacción: %w", err)
	}
	defer tx.Rollback()

	dayStart := localtime.StartOfLocalDay(now)
	dayEnd := dayStart.Add(24 * time.Hour)

	var hoy []models.Turno
	err = tx.Select(&hoy,
		`SELECT * FROM turnos
		 WHERE fkidvehiculo = $1 AND hora >= $2 AND hora < $3
		 ORDER BY hora ASC`,
		vehiculoID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("consultando turnos del día: %w", err)
	}

	if len(hoy) == 0 {
		return &ActiveResult{SinTurnos: true}, nil
	}

	// An in-progress turno always wins, even when other PENDIENTE rows are
	// stale: report it and mutate nothing.
	for i := range hoy {
		if hoy[i].Estado == models.TurnoEnRuta {
			return &ActiveResult{EnCurso: &hoy[i]}, nil
		}
	}

	result := &ActiveResult{}
	var stale []int64
	for i := range hoy {
		if hoy[i].Estado != models.TurnoPendiente {
			continue
		}
		if now.Sub(hoy[i].Hora) > e.lateThreshold {
			stale = append(stale, hoy[i].ID)
			continue
		}
		if result.Candidato == nil {
			result.Candidato = &hoy[i]
		}
	}

	if len(stale) > 0 {
		res, err := tx.Exec(
			`UPDATE turnos SET estado = $1, updated_at = $2
			 WHERE id = ANY($3) AND estado = $4`,
			models.TurnoDeserto, now, pq.Array(stale), models.TurnoPendiente)
		if err != nil {
			return nil, fmt.Errorf("desertando turnos vencidos: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			log.Printf("⏳ %d turno(s) vencidos del vehículo %d marcados como DESERTO", affected, vehiculoID)
			result.Desertados = stale
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("confirmando transacción: %w", err)
	}

	if result.Candidato != nil {
		result.MinutosRestantes = int(result.Candidato.Hora.Sub(now).Minutes())
		// MinutosRestantes truncates, so seconds before the hour it already
		// reads 0; the flag follows the same comparison Start enforces.
		result.PuedeIniciar = !now.Before(result.Candidato.Hora)
	}
	return result, nil
}

// EnRuta returns the vehicle's turno currently EN_RUTA, or nil.
func (e *Engine) EnRuta(vehiculoID int64) (*models.Turno, error) {
	var turno models.Turno
	err := e.db.Get(&turno,
		`SELECT * FROM turnos
		 WHERE fkidvehiculo = $1 AND estado = $2
		 ORDER BY hora DESC LIMIT 1`,
		vehiculoID, models.TurnoEnRuta)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consultando viaje activo: %w", err)
	}
	return &turno, nil
}

// ReapStale deserts every PENDIENTE turno scheduled before today. Intended
// for the daily cleanup endpoint; idempotent.
func (e *Engine) ReapStale(now time.Time) (int64, error) {
	res, err := e.db.Exec(
		`UPDATE turnos SET estado = $1, updated_at = $2
		 WHERE estado = $3 AND hora < $4`,
		models.TurnoDeserto, now, models.TurnoPendiente, localtime.StartOfLocalDay(now))
	if err != nil {
		return 0, fmt.Errorf("limpiando turnos: %w", err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func (e *Engine) desert(turnoID int64, now time.Time) (bool, error) {
	res, err := e.db.Exec(
		`UPDATE turnos SET estado = $1, updated_at = $2 WHERE id = $3 AND estado = $4`,
		models.TurnoDeserto, now, turnoID, models.TurnoPendiente)
	if err != nil {
		return false, fmt.Errorf("desertando turno %d: %w", turnoID, err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}
