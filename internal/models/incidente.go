package models

import (
	"database/sql"
	"time"
)

// Incidente is a driver-reported event during a turno, independent of the
// checkpoint ledger. Append-only.
type Incidente struct {
	ID          int64          `json:"id" db:"id"`
	FkIDTurno   int64          `json:"fkidturno" db:"fkidturno"`
	Hora        time.Time      `json:"hora" db:"hora"`
	Descripcion string         `json:"descripcion" db:"descripcion"`
	Foto        sql.NullString `json:"foto" db:"foto"`
	Latitud     float64        `json:"latitud" db:"latitud"`
	Longitud    float64        `json:"longitud" db:"longitud"`
}
