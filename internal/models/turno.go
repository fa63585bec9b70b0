package models

import "time"

// TurnoEstado represents the lifecycle state of a turno
type TurnoEstado string

const (
	TurnoPendiente  TurnoEstado = "PENDIENTE"  // Scheduled, not yet started
	TurnoEnRuta     TurnoEstado = "EN_RUTA"    // Driver started the run
	TurnoFinalizado TurnoEstado = "FINALIZADO" // Terminal: completed
	TurnoDeserto    TurnoEstado = "DESERTO"    // Terminal: never started within the lateness window
)

// Terminal reports whether no further transition is allowed from the state.
func (e TurnoEstado) Terminal() bool {
	return e == TurnoFinalizado || e == TurnoDeserto
}

// Turno is a scheduled vehicle run. Its estado column is mutated only by
// the turnos.Engine; rows are never deleted, only transitioned.
type Turno struct {
	ID           int64       `json:"id" db:"id"`
	FkIDVehiculo int64       `json:"fkidvehiculo" db:"fkidvehiculo"`
	Hora         time.Time   `json:"hora" db:"hora"` // scheduled start, stored UTC
	Estado       TurnoEstado `json:"estado" db:"estado"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// TurnoHora links a turno to a punto with its scheduled offset from
// departure ("HH:MM" or "HH:MM:SS"). One row per (turno, punto) pair,
// created when the turno is instantiated from a route template.
type TurnoHora struct {
	ID        int64  `json:"id" db:"id"`
	FkIDTurno int64  `json:"fkidturno" db:"fkidturno"`
	FkIDPunto int64  `json:"fkidpunto" db:"fkidpunto"`
	Tiempo    string `json:"tiempo" db:"tiempo"`
}
