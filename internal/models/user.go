package models

import "database/sql"

// User is a driver or admin account. Passwords carry the legacy Laravel
// bcrypt format ($2y$ prefix); see internal/auth.
type User struct {
	ID               int64          `json:"id" db:"id"`
	Name             string         `json:"name" db:"name"`
	Password         string         `json:"-" db:"password"` // Never return password in JSON
	Nombres          string         `json:"nombres" db:"nombres"`
	DNI              string         `json:"dni" db:"dni"`
	Role             string         `json:"role" db:"role"` // "driver" or "admin"
	Estado           int            `json:"estado" db:"estado"`
	PrimeraVez       int            `json:"primera_vez" db:"primera_vez"`
	ProfilePhotoPath sql.NullString `json:"foto" db:"profile_photo_path"`
	FkIDEmpresa      int64          `json:"fkidempresa" db:"fkidempresa"`
}

// Empresa is the operating company a user and its routes belong to
type Empresa struct {
	ID     int64          `json:"id" db:"id"`
	Nombre string         `json:"nombre" db:"nombre"`
	Color  sql.NullString `json:"color" db:"color"`
	Logo   sql.NullString `json:"logo" db:"logo"`
}

// Vehiculo is an assigned vehicle. Immutable for this service; owned by the
// admin panel.
type Vehiculo struct {
	ID       int64          `json:"id" db:"id"`
	Placa    string         `json:"placa" db:"placa"`
	Modelo   sql.NullString `json:"modelo" db:"modelo"`
	Marca    sql.NullString `json:"marca" db:"marca"`
	Anio     sql.NullInt64  `json:"anio" db:"anio"`
	FkIDUser int64          `json:"fkiduser" db:"fkiduser"`
}

// FCMToken is a push-notification token registered by a driver device
type FCMToken struct {
	ID         int64  `json:"id" db:"id"`
	UserID     int64  `json:"user_id" db:"user_id"`
	Token      string `json:"token" db:"token"`
	DeviceType string `json:"device_type" db:"device_type"` // "ios" or "android"
}
