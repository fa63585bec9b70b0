package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"rutacontrol-backend/internal/localtime"
	"rutacontrol-backend/internal/models"
	"rutacontrol-backend/internal/turnos"
	"rutacontrol-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/phpdave11/gofpdf"
)

type reporteTurno struct {
	ID        int64          `db:"id"`
	Hora      sql.NullTime   `db:"hora"`
	Estado    string         `db:"estado"`
	Conductor string         `db:"conductor"`
	DNI       string         `db:"dni"`
	Placa     string         `db:"placa"`
	Empresa   string         `db:"empresa"`
	Ruta      sql.NullString `db:"ruta"`
}

func loadReporteTurno(db *sqlx.DB, turnoID int64) (*reporteTurno, error) {
	var row reporteTurno
	err := db.Get(&row,
		`SELECT t.id, t.hora, t.estado,
		        u.nombres AS conductor, u.dni,
		        v.placa, e.nombre AS empresa,
		        (SELECT r.nombre FROM turno_horas th
		          JOIN puntos p ON p.id = th.fkidpunto
		          JOIN rutas r ON r.id = p.fkidruta
		          WHERE th.fkidturno = t.id LIMIT 1) AS ruta
		 FROM turnos t
		 JOIN vehiculos v ON v.id = t.fkidvehiculo
		 JOIN users u ON u.id = v.fkiduser
		 JOIN empresas e ON e.id = u.fkidempresa
		 WHERE t.id = $1`,
		turnoID)
	if err == sql.ErrNoRows {
		return nil, turnos.ErrTurnoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consultando datos del turno %d: %w", turnoID, err)
	}
	return &row, nil
}

func loadIncidentes(db *sqlx.DB, turnoID int64) ([]models.Incidente, error) {
	var incidentes []models.Incidente
	err := db.Select(&incidentes,
		`SELECT id, fkidturno, hora, descripcion, foto, latitud, longitud
		 FROM incidentes WHERE fkidturno = $1 ORDER BY hora ASC`,
		turnoID)
	if err != nil {
		return nil, fmt.Errorf("consultando incidentes del turno %d: %w", turnoID, err)
	}
	return incidentes, nil
}

// VistaPrevia assembles the full turno report as JSON: driver and vehicle,
// every scheduled stop with its mark status, and the incidents
func VistaPrevia(db *sqlx.DB, ledger *turnos.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		turnoID, err := strconv.ParseInt(chi.URLParam(r, "idturno"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "ID de turno no válido")
			return
		}

		reporte, err := loadReporteTurno(db, turnoID)
		if err != nil {
			if err == turnos.ErrTurnoNotFound {
				utils.RespondError(w, http.StatusNotFound, "Turno no encontrado")
				return
			}
			log.Printf("❌ Error en vista previa: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al generar la vista previa")
			return
		}

		puntos, err := ledger.ListForTurno(turnoID)
		if err != nil {
			log.Printf("❌ Error en vista previa: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al generar la vista previa")
			return
		}

		incidentes, err := loadIncidentes(db, turnoID)
		if err != nil {
			log.Printf("❌ Error en vista previa: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al generar la vista previa")
			return
		}

		incidenteData := make([]map[string]interface{}, len(incidentes))
		for i, inc := range incidentes {
			incidenteData[i] = map[string]interface{}{
				"hora":        localtime.FormatLocal(inc.Hora),
				"descripcion": inc.Descripcion,
				"foto":        models.FromNullString(inc.Foto),
			}
		}

		utils.RespondSuccess(w, map[string]interface{}{
			"turno": map[string]interface{}{
				"id":     reporte.ID,
				"hora":   formatNullLocal(reporte.Hora),
				"estado": reporte.Estado,
			},
			"conductor":       reporte.Conductor,
			"dni":             reporte.DNI,
			"placa":           reporte.Placa,
			"empresa":         reporte.Empresa,
			"ruta":            models.FromNullString(reporte.Ruta),
			"puntos_marcados": formatPuntoEstados(puntos),
			"incidentes":      incidenteData,
		})
	}
}

// DescargarPDF renders the turno report as a downloadable PDF
func DescargarPDF(db *sqlx.DB, ledger *turnos.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		turnoID, err := strconv.ParseInt(chi.URLParam(r, "idturno"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "ID de turno no válido")
			return
		}

		reporte, err := loadReporteTurno(db, turnoID)
		if err != nil {
			if err == turnos.ErrTurnoNotFound {
				utils.RespondError(w, http.StatusNotFound, "Turno no encontrado")
				return
			}
			log.Printf("❌ Error generando PDF: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al generar el PDF")
			return
		}

		puntos, err := ledger.ListForTurno(turnoID)
		if err != nil {
			log.Printf("❌ Error generando PDF: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al generar el PDF")
			return
		}

		incidentes, err := loadIncidentes(db, turnoID)
		if err != nil {
			log.Printf("❌ Error generando PDF: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al generar el PDF")
			return
		}

		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()

		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, "Reporte de Turno", "", 1, "C", false, 0, "")
		pdf.Ln(4)

		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, fmt.Sprintf("Empresa: %s", reporte.Empresa), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 7, fmt.Sprintf("Conductor: %s (DNI %s)", reporte.Conductor, reporte.DNI), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 7, fmt.Sprintf("Placa: %s", reporte.Placa), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 7, fmt.Sprintf("Turno #%d - %s - Estado: %s",
			reporte.ID, formatNullLocal(reporte.Hora), reporte.Estado), "", 1, "L", false, 0, "")
		pdf.Ln(6)

		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Puntos de control", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(12, 7, "N°", "1", 0, "C", true, 0, "")
		pdf.CellFormat(70, 7, "Punto", "1", 0, "L", true, 0, "")
		pdf.CellFormat(28, 7, "Programado", "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 7, "Hora marcada", "1", 0, "C", true, 0, "")
		pdf.CellFormat(45, 7, "Estado", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for i := range puntos {
			p := &puntos[i]
			horaMarcada := "-"
			estado := "Sin marcar"
			if p.IDMarcado.Valid {
				if p.Hora.Valid {
					horaMarcada = localtime.FormatLocalClock(p.Hora.Time)
				}
				if p.Diferencia.Valid {
					estado = deviationLabel(p.Diferencia.Int64)
				} else {
					estado = "Marcado"
				}
			}
			pdf.CellFormat(12, 7, strconv.Itoa(p.Orden), "1", 0, "C", false, 0, "")
			pdf.CellFormat(70, 7, p.Nombre, "1", 0, "L", false, 0, "")
			pdf.CellFormat(28, 7, p.Tiempo, "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 7, horaMarcada, "1", 0, "C", false, 0, "")
			pdf.CellFormat(45, 7, estado, "1", 1, "C", false, 0, "")
		}

		if len(incidentes) > 0 {
			pdf.Ln(6)
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 8, "Incidentes", "", 1, "L", false, 0, "")
			pdf.SetFont("Arial", "", 10)
			for _, inc := range incidentes {
				pdf.CellFormat(35, 7, localtime.FormatLocalClock(inc.Hora), "", 0, "L", false, 0, "")
				pdf.MultiCell(0, 7, inc.Descripcion, "", "L", false)
			}
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="reporte_turno_%d.pdf"`, turnoID))
		if err := pdf.Output(w); err != nil {
			log.Printf("❌ Error escribiendo PDF: %v", err)
		}
	}
}

func deviationLabel(diferencia int64) string {
	switch {
	case diferencia > 0:
		return fmt.Sprintf("Retraso %d min", diferencia)
	case diferencia < 0:
		return fmt.Sprintf("Adelanto %d min", -diferencia)
	default:
		return "A tiempo"
	}
}

func formatNullLocal(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return localtime.FormatLocal(t.Time)
}
