package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens the shared connection pool and verifies it with a ping.
// Every component receives this pool explicitly; there is no package-level
// database handle anywhere in the service.
func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("🔌 Connecting to database...")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection established")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Operating companies
		`CREATE TABLE IF NOT EXISTS empresas (
			id BIGSERIAL PRIMARY KEY,
			nombre TEXT NOT NULL,
			color TEXT,
			logo TEXT
		)`,

		// Driver / admin accounts (passwords in Laravel bcrypt format)
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			nombres TEXT NOT NULL,
			dni TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('driver', 'admin')),
			estado INT NOT NULL DEFAULT 1,
			primera_vez INT NOT NULL DEFAULT 0,
			profile_photo_path TEXT,
			fkidempresa BIGINT NOT NULL REFERENCES empresas(id)
		)`,

		`CREATE TABLE IF NOT EXISTS vehiculos (
			id BIGSERIAL PRIMARY KEY,
			placa TEXT NOT NULL UNIQUE,
			modelo TEXT,
			marca TEXT,
			anio INT,
			fkiduser BIGINT NOT NULL REFERENCES users(id)
		)`,

		`CREATE TABLE IF NOT EXISTS rutas (
			id BIGSERIAL PRIMARY KEY,
			nombre TEXT NOT NULL,
			fkidempresa BIGINT NOT NULL REFERENCES empresas(id)
		)`,

		// Checkpoints: static reference data, read-only to this service
		`CREATE TABLE IF NOT EXISTS puntos (
			id BIGSERIAL PRIMARY KEY,
			fkidruta BIGINT NOT NULL REFERENCES rutas(id),
			nombre TEXT NOT NULL,
			latitud DOUBLE PRECISION NOT NULL,
			longitud DOUBLE PRECISION NOT NULL,
			orden INT NOT NULL
		)`,

		// Shifts: estado is mutated only by turnos.Engine, never deleted
		`CREATE TABLE IF NOT EXISTS turnos (
			id BIGSERIAL PRIMARY KEY,
			fkidvehiculo BIGINT NOT NULL REFERENCES vehiculos(id),
			hora TIMESTAMPTZ NOT NULL,
			estado TEXT NOT NULL DEFAULT 'PENDIENTE'
				CHECK(estado IN ('PENDIENTE', 'EN_RUTA', 'FINALIZADO', 'DESERTO')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS turnos_vehiculo_hora ON turnos(fkidvehiculo, hora)`,

		// Scheduled stops: one row per (turno, punto), offset from departure
		`CREATE TABLE IF NOT EXISTS turno_horas (
			id BIGSERIAL PRIMARY KEY,
			fkidturno BIGINT NOT NULL REFERENCES turnos(id) ON DELETE CASCADE,
			fkidpunto BIGINT NOT NULL REFERENCES puntos(id),
			tiempo TEXT NOT NULL,
			UNIQUE(fkidturno, fkidpunto)
		)`,

		// Omission reason catalog
		`CREATE TABLE IF NOT EXISTS estado_marcados (
			id BIGSERIAL PRIMARY KEY,
			nombre TEXT NOT NULL
		)`,

		// Checkpoint ledger: append-only, estado 1 = mark, 0 = omission
		`CREATE TABLE IF NOT EXISTS marcados (
			id BIGSERIAL PRIMARY KEY,
			fecha TIMESTAMPTZ NOT NULL,
			celular TEXT NOT NULL DEFAULT '',
			latitud DOUBLE PRECISION,
			longitud DOUBLE PRECISION,
			observacion TEXT,
			diferencia INT,
			estado INT NOT NULL DEFAULT 1,
			fkidestadomarcado BIGINT REFERENCES estado_marcados(id),
			fkidturnohora BIGINT NOT NULL REFERENCES turno_horas(id)
		)`,

		// One physical mark per scheduled stop; omissions stay unrestricted
		`CREATE UNIQUE INDEX IF NOT EXISTS marcados_turnohora_unico
			ON marcados(fkidturnohora) WHERE estado = 1`,

		`CREATE INDEX IF NOT EXISTS marcados_turnohora ON marcados(fkidturnohora)`,

		`CREATE TABLE IF NOT EXISTS incidentes (
			id BIGSERIAL PRIMARY KEY,
			fkidturno BIGINT NOT NULL REFERENCES turnos(id),
			hora TIMESTAMPTZ NOT NULL,
			descripcion TEXT NOT NULL,
			foto TEXT,
			latitud DOUBLE PRECISION NOT NULL,
			longitud DOUBLE PRECISION NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android'))
		)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("✅ Database migrations completed")
	return nil
}
