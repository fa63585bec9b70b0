package database

import (
	"log"
	"time"

	"rutacontrol-backend/internal/auth"
	"rutacontrol-backend/internal/localtime"

	"github.com/jmoiron/sqlx"
)

// Seed loads a demo empresa with one driver, one vehicle, one route and two
// turnos for today. Skips everything when data already exists.
func Seed(db *sqlx.DB) error {
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM empresas"); err != nil {
		return err
	}
	if count > 0 {
		log.Println("✓ Database already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding demo data...")

	var empresaID int64
	err := db.QueryRow(
		`INSERT INTO empresas (nombre, color) VALUES ($1, $2) RETURNING id`,
		"Transportes El Rápido S.A.C.", "#1E6FD9").Scan(&empresaID)
	if err != nil {
		return err
	}

	driverPassword, err := auth.GenerateLaravelHash("conductor123")
	if err != nil {
		return err
	}
	adminPassword, err := auth.GenerateLaravelHash("admin123")
	if err != nil {
		return err
	}

	var driverID, adminID int64
	err = db.QueryRow(
		`INSERT INTO users (name, password, nombres, dni, role, fkidempresa)
		 VALUES ($1, $2, $3, $4, 'driver', $5) RETURNING id`,
		"jperez", driverPassword, "Juan Pérez Quispe", "45678912", empresaID).Scan(&driverID)
	if err != nil {
		return err
	}
	err = db.QueryRow(
		`INSERT INTO users (name, password, nombres, dni, role, fkidempresa)
		 VALUES ($1, $2, $3, $4, 'admin', $5) RETURNING id`,
		"admin", adminPassword, "Administrador", "00000000", empresaID).Scan(&adminID)
	if err != nil {
		return err
	}

	var vehiculoID int64
	err = db.QueryRow(
		`INSERT INTO vehiculos (placa, modelo, marca, anio, fkiduser)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		"ABH-713", "Sprinter 415", "Mercedes-Benz", 2019, driverID).Scan(&vehiculoID)
	if err != nil {
		return err
	}

	var rutaID int64
	err = db.QueryRow(
		`INSERT INTO rutas (nombre, fkidempresa) VALUES ($1, $2) RETURNING id`,
		"Ruta Centro - Norte", empresaID).Scan(&rutaID)
	if err != nil {
		return err
	}

	// Checkpoints through central Lima, in route order
	puntos := []struct {
		nombre   string
		latitud  float64
		longitud float64
	}{
		{"Paradero Plaza Mayor", -12.045991, -77.030551},
		{"Paradero Av. Abancay", -12.051545, -77.023917},
		{"Paradero Av. Grau", -12.058934, -77.022891},
		{"Paradero Terminal Norte", -12.026215, -77.052475},
	}
	tiempos := []string{"00:00", "00:20", "00:45", "01:15"}

	puntoIDs := make([]int64, len(puntos))
	for i, p := range puntos {
		err = db.QueryRow(
			`INSERT INTO puntos (fkidruta, nombre, latitud, longitud, orden)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			rutaID, p.nombre, p.latitud, p.longitud, i+1).Scan(&puntoIDs[i])
		if err != nil {
			return err
		}
	}

	for _, nombre := range []string{"Tráfico intenso", "Desvío de ruta", "Falla mecánica", "Otro"} {
		if _, err := db.Exec(`INSERT INTO estado_marcados (nombre) VALUES ($1)`, nombre); err != nil {
			return err
		}
	}

	// Two turnos for today (Lima time) with the full checkpoint schedule
	hoy := localtime.StartOfLocalDay(localtime.Now())
	for _, salida := range []time.Duration{8 * time.Hour, 14 * time.Hour} {
		var turnoID int64
		err = db.QueryRow(
			`INSERT INTO turnos (fkidvehiculo, hora) VALUES ($1, $2) RETURNING id`,
			vehiculoID, hoy.Add(salida)).Scan(&turnoID)
		if err != nil {
			return err
		}
		for i, puntoID := range puntoIDs {
			_, err = db.Exec(
				`INSERT INTO turno_horas (fkidturno, fkidpunto, tiempo) VALUES ($1, $2, $3)`,
				turnoID, puntoID, tiempos[i])
			if err != nil {
				return err
			}
		}
	}

	log.Println("✓ Demo data seeded")
	log.Println("  📧 Conductor: jperez / conductor123")
	log.Println("  📧 Admin:     admin / admin123")
	return nil
}
