package turnos

import (
	"database/sql"
	"fmt"
	"time"

	"rutacontrol-backend/internal/models"
	"rutacontrol-backend/internal/schedule"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// Ledger is the sole writer of marcados rows: physical marks and omissions,
// append-only. Geofencing is the caller's responsibility (the verification
// endpoint runs before marking); the ledger trusts the coordinates it gets.
type Ledger struct {
	db *sqlx.DB
}

// NewLedger creates a ledger over the shared pool.
func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

// Mark is a freshly recorded physical mark with its computed deviation.
type Mark struct {
	ID         int64
	TurnoID    int64
	Marked     time.Time
	Deviation  schedule.Result
	PuntoID    int64
	PuntoOrden int
}

// Stop is a scheduled stop resolved with its parent turno's departure hour
// and the punto's route order.
type Stop struct {
	TurnoID   int64     `db:"fkidturno"`
	Departure time.Time `db:"hora"`
	Tiempo    string    `db:"tiempo"`
	PuntoID   int64     `db:"fkidpunto"`
	Orden     int       `db:"orden"`
}

// StopSchedule resolves the scheduled stop behind a turno_hora id.
func (l *Ledger) StopSchedule(turnoHoraID int64) (*Stop, error) {
	var stop Stop
	err := l.db.Get(&stop,
		`SELECT th.fkidturno, t.hora, th.tiempo, th.fkidpunto, p.orden
		 FROM turno_horas th
		 JOIN turnos t ON t.id = th.fkidturno
		 JOIN puntos p ON p.id = th.fkidpunto
		 WHERE th.id = $1`,
		turnoHoraID)
	if err == sql.ErrNoRows {
		return nil, ErrTurnoHoraNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consultando turno_hora %d: %w", turnoHoraID, err)
	}
	return &stop, nil
}

// RecordMark computes the deviation for the stop and appends a physical
// mark. A duplicate mark for the same stop hits the partial unique index
// and surfaces as ErrAlreadyMarked; nothing is written.
func (l *Ledger) RecordMark(turnoHoraID int64, marked time.Time, lat, lon float64, celular string, observacion *string) (*Mark, error) {
	stop, err := l.StopSchedule(turnoHoraID)
	if err != nil {
		return nil, err
	}

	offset, err := schedule.ParseOffset(stop.Tiempo)
	if err != nil {
		return nil, err
	}
	deviation := schedule.Compute(stop.Departure, offset, marked)

	var id int64
	err = l.db.QueryRow(
		`INSERT INTO marcados (fecha, celular, latitud, longitud, observacion, diferencia, estado, fkidturnohora)
		 VALUES ($1, $2, $3, $4, $5, $6, 1, $7)
		 RETURNING id`,
		marked, celular, lat, lon, models.ToNullString(observacion),
		deviation.DeviationMinutes, turnoHoraID,
	).Scan(&id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pqUniqueViolation {
			return nil, ErrAlreadyMarked
		}
		return nil, fmt.Errorf("registrando marcación: %w", err)
	}

	return &Mark{
		ID:         id,
		TurnoID:    stop.TurnoID,
		Marked:     marked,
		Deviation:  deviation,
		PuntoID:    stop.PuntoID,
		PuntoOrden: stop.Orden,
	}, nil
}

// RecordOmission appends an omission entry for the (turno, punto) pairing:
// no coordinates, no deviation, an omission-reason reference instead.
func (l *Ledger) RecordOmission(turnoID, puntoID, estadoMarcadoID int64, celular, observacion string, now time.Time) (int64, error) {
	var turnoHoraID int64
	err := l.db.Get(&turnoHoraID,
		`SELECT id FROM turno_horas WHERE fkidturno = $1 AND fkidpunto = $2 LIMIT 1`,
		turnoID, puntoID)
	if err == sql.ErrNoRows {
		return 0, ErrTurnoHoraNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("consultando turno_hora para turno %d punto %d: %w", turnoID, puntoID, err)
	}

	var id int64
	err = l.db.QueryRow(
		`INSERT INTO marcados (fecha, celular, latitud, longitud, observacion, diferencia, estado, fkidestadomarcado, fkidturnohora)
		 VALUES ($1, $2, NULL, NULL, $3, NULL, 0, $4, $5)
		 RETURNING id`,
		now, celular, observacion, estadoMarcadoID, turnoHoraID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("registrando omisión: %w", err)
	}
	return id, nil
}

// ListForTurno left-joins the turno's scheduled stops against physical
// marks, in route order, classifying each as marcado or sin marcar.
func (l *Ledger) ListForTurno(turnoID int64) ([]models.PuntoEstado, error) {
	var puntos []models.PuntoEstado
	err := l.db.Select(&puntos,
		`SELECT p.id, p.nombre, p.latitud, p.longitud, p.orden, th.tiempo,
		        th.id AS idturnohora,
		        m.id AS idmarcado, m.fecha,
		        m.latitud AS lat_marcado, m.longitud AS lon_marcado,
		        m.diferencia
		 FROM turno_horas th
		 JOIN puntos p ON p.id = th.fkidpunto
		 LEFT JOIN marcados m ON m.fkidturnohora = th.id AND m.estado = 1
		 WHERE th.fkidturno = $1
		 ORDER BY p.orden ASC`,
		turnoID)
	if err != nil {
		return nil, fmt.Errorf("consultando puntos del turno %d: %w", turnoID, err)
	}
	return puntos, nil
}

// PuntoForTurno returns the punto's coordinates and order when it belongs
// to the turno's schedule, for the geofence verification endpoint.
func (l *Ledger) PuntoForTurno(puntoID, turnoID int64) (*models.Punto, error) {
	var punto models.Punto
	err := l.db.Get(&punto,
		`SELECT p.id, p.fkidruta, p.nombre, p.latitud, p.longitud, p.orden
		 FROM puntos p
		 JOIN turno_horas th ON th.fkidpunto = p.id
		 WHERE p.id = $1 AND th.fkidturno = $2`,
		puntoID, turnoID)
	if err == sql.ErrNoRows {
		return nil, ErrTurnoHoraNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consultando punto %d del turno %d: %w", puntoID, turnoID, err)
	}
	return &punto, nil
}
