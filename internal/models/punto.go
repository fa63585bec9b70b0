package models

// Ruta is a named route template owned by an empresa
type Ruta struct {
	ID          int64  `json:"id" db:"id"`
	Nombre      string `json:"nombre" db:"nombre"`
	FkIDEmpresa int64  `json:"fkidempresa" db:"fkidempresa"`
}

// Punto is a fixed geographic checkpoint on a ruta. Static reference data,
// read-only to this service.
type Punto struct {
	ID       int64   `json:"id" db:"id"`
	FkIDRuta int64   `json:"fkidruta" db:"fkidruta"`
	Nombre   string  `json:"nombre" db:"nombre"`
	Latitud  float64 `json:"latitud" db:"latitud"`
	Longitud float64 `json:"longitud" db:"longitud"`
	Orden    int     `json:"orden" db:"orden"`
}
