package models

import (
	"database/sql"
	"time"
)

// Marcado is one append-only entry in the checkpoint ledger: either a
// physical mark (coordinates + deviation) or an omission (no coordinates,
// carries an omission-reason reference). Rows are never updated or deleted.
type Marcado struct {
	ID                int64           `json:"id" db:"id"`
	Fecha             time.Time       `json:"fecha" db:"fecha"`
	Celular           string          `json:"celular" db:"celular"`
	Latitud           sql.NullFloat64 `json:"latitud" db:"latitud"`
	Longitud          sql.NullFloat64 `json:"longitud" db:"longitud"`
	Diferencia        sql.NullInt64   `json:"diferencia" db:"diferencia"`
	Observacion       sql.NullString  `json:"observacion" db:"observacion"`
	Estado            int             `json:"estado" db:"estado"` // 1 = physical mark, 0 = omission
	FkIDEstadoMarcado sql.NullInt64   `json:"fkidestadomarcado" db:"fkidestadomarcado"`
	FkIDTurnoHora     int64           `json:"fkidturnohora" db:"fkidturnohora"`
}

// EstadoMarcado is a catalog row naming why a punto was omitted
type EstadoMarcado struct {
	ID     int64  `json:"id" db:"id"`
	Nombre string `json:"nombre" db:"nombre"`
}

// PuntoEstado is one row of the schedule-vs-marks listing for a turno:
// every scheduled stop in route order, joined against its mark if any.
type PuntoEstado struct {
	ID          int64           `json:"id" db:"id"`
	Nombre      string          `json:"nombre" db:"nombre"`
	Latitud     float64         `json:"latitud" db:"latitud"`
	Longitud    float64         `json:"longitud" db:"longitud"`
	Orden       int             `json:"orden" db:"orden"`
	Tiempo      string          `json:"tiempo" db:"tiempo"`
	IDTurnoHora int64           `json:"idTurnoHora" db:"idturnohora"`
	IDMarcado   sql.NullInt64   `json:"-" db:"idmarcado"`
	Hora        sql.NullTime    `json:"-" db:"fecha"`
	LatMarcado  sql.NullFloat64 `json:"-" db:"lat_marcado"`
	LonMarcado  sql.NullFloat64 `json:"-" db:"lon_marcado"`
	Diferencia  sql.NullInt64   `json:"-" db:"diferencia"`
}

// EstadoLabel classifies the row as "marcado" or "sin marcar"
func (p *PuntoEstado) EstadoLabel() string {
	if p.IDMarcado.Valid {
		return "marcado"
	}
	return "sin marcar"
}

// ToNullInt64 converts a pointer to int64 to sql.NullInt64
func ToNullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// FromNullInt64 converts sql.NullInt64 to pointer to int64
func FromNullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

// ToNullString converts a pointer to string to sql.NullString
func ToNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

// FromNullString converts sql.NullString to pointer to string
func FromNullString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	return &n.String
}
