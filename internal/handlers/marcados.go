package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"rutacontrol-backend/internal/config"
	"rutacontrol-backend/internal/geo"
	"rutacontrol-backend/internal/localtime"
	"rutacontrol-backend/internal/models"
	"rutacontrol-backend/internal/schedule"
	"rutacontrol-backend/internal/turnos"
	"rutacontrol-backend/internal/websocket"
	"rutacontrol-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

type verificarRangoRequest struct {
	LatitudMarcado  float64 `json:"latitudMarcado"`
	LongitudMarcado float64 `json:"longitudMarcado"`
	IDPunto         int64   `json:"idpunto"`
	IDTurno         int64   `json:"idturno"`
}

// VerificarRango checks whether the reported position falls inside the
// marking radius of a punto scheduled for the turno. Read-only: the app
// calls this before offering the mark button.
func VerificarRango(ledger *turnos.Ledger, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verificarRangoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDPunto == 0 || req.IDTurno == 0 {
			utils.RespondError(w, http.StatusBadRequest, "Se requieren: latitud, longitud, idpunto e idturno")
			return
		}

		punto, err := ledger.PuntoForTurno(req.IDPunto, req.IDTurno)
		if err != nil {
			if errors.Is(err, turnos.ErrTurnoHoraNotFound) {
				utils.RespondError(w, http.StatusNotFound, "El punto no pertenece al turno especificado")
				return
			}
			log.Printf("❌ Error verificando rango: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al verificar ubicación")
			return
		}

		distancia := geo.DistanceMeters(req.LatitudMarcado, req.LongitudMarcado, punto.Latitud, punto.Longitud)
		dentro := geo.WithinRadius(distancia, cfg.GeofenceRadiusMeters)

		mensaje := fmt.Sprintf("Está dentro del rango permitido (%.0fm)", cfg.GeofenceRadiusMeters)
		if !dentro {
			mensaje = fmt.Sprintf("Está a %.1fm del punto (máximo %.0fm permitidos)",
				distancia, cfg.GeofenceRadiusMeters)
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": dentro,
			"data": map[string]interface{}{
				"dentroDelRango": dentro,
				"distancia":      distancia,
				"orden_punto":    punto.Orden,
				"punto": map[string]interface{}{
					"latitud":  punto.Latitud,
					"longitud": punto.Longitud,
				},
				"ubicacionActual": map[string]interface{}{
					"latitud":  req.LatitudMarcado,
					"longitud": req.LongitudMarcado,
				},
			},
			"message": mensaje,
		})
	}
}

type calcularDiferenciaRequest struct {
	FkIDTurnoHora   int64  `json:"fkidturnohora"`
	HoraSalidaTurno string `json:"hora_salida_turno"`
	HoraMarcado     string `json:"hora_marcado"`
}

// CalcularDiferencia previews the deviation a mark would record, without
// writing anything to the ledger
func CalcularDiferencia(ledger *turnos.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req calcularDiferenciaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FkIDTurnoHora == 0 {
			utils.RespondError(w, http.StatusBadRequest, "Se requiere fkidturnohora")
			return
		}

		stop, err := ledger.StopSchedule(req.FkIDTurnoHora)
		if err != nil {
			if errors.Is(err, turnos.ErrTurnoHoraNotFound) {
				utils.RespondError(w, http.StatusNotFound, "Registro de horario no encontrado")
				return
			}
			log.Printf("❌ Error consultando horario: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al calcular la diferencia")
			return
		}

		offset, err := schedule.ParseOffset(stop.Tiempo)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		// Clients may still send their own departure reading; the stored
		// turno hour wins only when they omit it.
		departure := stop.Departure
		if req.HoraSalidaTurno != "" {
			departure, err = parseInstant(req.HoraSalidaTurno)
			if err != nil {
				utils.RespondError(w, http.StatusBadRequest, schedule.ErrInvalidInstant.Error())
				return
			}
		}

		marked := localtime.Now()
		if req.HoraMarcado != "" {
			marked, err = parseInstant(req.HoraMarcado)
			if err != nil {
				utils.RespondError(w, http.StatusBadRequest, schedule.ErrInvalidInstant.Error())
				return
			}
		}

		result := schedule.Compute(departure, offset, marked)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"diferencia_minutos": result.DeviationMinutes,
				"hora_esperada":      localtime.FormatLocal(result.Expected),
				"hora_marcado":       localtime.FormatLocal(result.Marked),
				"tiempo_programado":  stop.Tiempo,
				"idpunto":            stop.PuntoID,
				"orden_punto":        stop.Orden,
				"estado":             result.Status,
			},
		})
	}
}

type marcarPuntoRequest struct {
	FkIDTurnoHora int64    `json:"fkidturnohora"`
	Latitud       *float64 `json:"latitud"`
	Longitud      *float64 `json:"longitud"`
	Celular       string   `json:"celular"`
	Observacion   *string  `json:"observacion"`
}

// complete reports whether every required field was sent. The coordinates
// are pointers so an explicit 0 (a valid position on the equator or the
// prime meridian) is not mistaken for an omitted field.
func (req *marcarPuntoRequest) complete() bool {
	return req.FkIDTurnoHora != 0 && req.Latitud != nil && req.Longitud != nil
}

// MarcarPunto appends a physical mark for a scheduled stop. The deviation
// is computed server-side at the moment of the request.
func MarcarPunto(ledger *turnos.Ledger, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /marcarpunto")

		var req marcarPuntoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.complete() {
			utils.RespondError(w, http.StatusBadRequest, "Datos incompletos: se requieren fkidturnohora, latitud y longitud")
			return
		}

		now := localtime.Now()
		mark, err := ledger.RecordMark(req.FkIDTurnoHora, now, *req.Latitud, *req.Longitud, req.Celular, req.Observacion)
		if err != nil {
			switch {
			case errors.Is(err, turnos.ErrAlreadyMarked):
				utils.RespondError(w, http.StatusConflict, "Este punto ya fue marcado en el turno")
			case errors.Is(err, turnos.ErrTurnoHoraNotFound):
				utils.RespondError(w, http.StatusNotFound, "Registro de horario no encontrado")
			case errors.Is(err, schedule.ErrInvalidScheduleFormat):
				utils.RespondError(w, http.StatusBadRequest, err.Error())
			default:
				log.Printf("❌ Error al marcar punto: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "Error al registrar la marcación")
			}
			return
		}

		hub.BroadcastTurnoEvent(websocket.TurnoEvent{
			Type:    "punto_marcado",
			TurnoID: mark.TurnoID,
			Detalle: mark.Deviation.Status,
		})

		log.Printf("✅ Punto %d marcado (orden %d, diferencia %d min)", mark.PuntoID, mark.PuntoOrden, mark.Deviation.DeviationMinutes)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Punto marcado correctamente",
			"data": map[string]interface{}{
				"id_marcacion": mark.ID,
				"hora_marcado": localtime.FormatLocal(mark.Marked),
				"diferencia":   mark.Deviation.DeviationMinutes,
				"estado":       mark.Deviation.Status,
				"idpunto":      mark.PuntoID,
				"orden_punto":  mark.PuntoOrden,
			},
		})
	}
}

type omitirPuntoRequest struct {
	FkIDTurno         int64  `json:"fk_idturno"`
	FkIDPunto         int64  `json:"fk_idpunto"`
	FkIDEstadoMarcado int64  `json:"fkidestadomarcado"`
	Celular           string `json:"celular"`
	Observacion       string `json:"observacion"`
}

// OmitirPunto appends an omission entry naming why a punto was skipped
func OmitirPunto(ledger *turnos.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /omitir_punto")

		var req omitirPuntoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
			req.FkIDTurno == 0 || req.FkIDPunto == 0 || req.FkIDEstadoMarcado == 0 {
			utils.RespondError(w, http.StatusBadRequest, "Se requieren fk_idturno, fk_idpunto y fkidestadomarcado")
			return
		}

		id, err := ledger.RecordOmission(req.FkIDTurno, req.FkIDPunto, req.FkIDEstadoMarcado,
			req.Celular, req.Observacion, localtime.Now())
		if err != nil {
			if errors.Is(err, turnos.ErrTurnoHoraNotFound) {
				utils.RespondError(w, http.StatusNotFound, "El punto no pertenece al recorrido de este turno")
				return
			}
			log.Printf("❌ Error al omitir punto: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al registrar la omisión")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"message":   "Omisión de punto registrada exitosamente",
			"idmarcado": id,
		})
	}
}

// GetPuntosTurno lists the turno's scheduled stops with their mark status
func GetPuntosTurno(ledger *turnos.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		turnoID, err := strconv.ParseInt(r.URL.Query().Get("idturno"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Se requiere el id del turno")
			return
		}

		puntos, err := ledger.ListForTurno(turnoID)
		if err != nil {
			log.Printf("❌ Error consultando puntos del turno: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al obtener los puntos del turno")
			return
		}

		utils.RespondSuccess(w, formatPuntoEstados(puntos))
	}
}

// GetPuntosMarcados resolves the vehicle's EN_RUTA turno and lists its
// stops with mark status, for the live route screen
func GetPuntosMarcados(engine *turnos.Engine, ledger *turnos.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehiculoID, err := strconv.ParseInt(r.URL.Query().Get("idvehiculo"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Se requiere el id del vehículo")
			return
		}

		turno, err := engine.EnRuta(vehiculoID)
		if err != nil {
			log.Printf("❌ Error consultando turno en ruta: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al consultar el turno")
			return
		}
		if turno == nil {
			// No run in progress is a normal state, not an error
			utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"puntos":  []interface{}{},
			})
			return
		}

		puntos, err := ledger.ListForTurno(turno.ID)
		if err != nil {
			log.Printf("❌ Error consultando puntos marcados: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al obtener los puntos")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"puntos":  formatPuntoEstados(puntos),
		})
	}
}

// GetPuntos lists an empresa's checkpoints in route order
func GetPuntos(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		empresaID, eerr := strconv.ParseInt(r.URL.Query().Get("fk_idempresa"), 10, 64)
		vehiculoID, verr := strconv.ParseInt(r.URL.Query().Get("idvehiculo"), 10, 64)
		if eerr != nil || verr != nil {
			utils.RespondError(w, http.StatusBadRequest, "Se requieren los parámetros fk_idempresa e idvehiculo")
			return
		}

		var puntos []models.Punto
		err := db.Select(&puntos,
			`SELECT DISTINCT p.id, p.fkidruta, p.nombre, p.latitud, p.longitud, p.orden
			 FROM puntos p
			 JOIN rutas r ON r.id = p.fkidruta
			 JOIN turno_horas th ON th.fkidpunto = p.id
			 JOIN turnos t ON t.id = th.fkidturno
			 WHERE r.fkidempresa = $1 AND t.fkidvehiculo = $2
			 ORDER BY p.orden ASC`,
			empresaID, vehiculoID)
		if err != nil {
			log.Printf("❌ Error consultando puntos: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error interno al obtener los puntos de marcado")
			return
		}

		utils.RespondSuccess(w, puntos)
	}
}

func formatPuntoEstados(puntos []models.PuntoEstado) []map[string]interface{} {
	data := make([]map[string]interface{}, len(puntos))
	for i := range puntos {
		p := &puntos[i]
		entry := map[string]interface{}{
			"id":          p.ID,
			"nombre":      p.Nombre,
			"latitud":     p.Latitud,
			"longitud":    p.Longitud,
			"orden":       p.Orden,
			"tiempo":      p.Tiempo,
			"idTurnoHora": p.IDTurnoHora,
			"estado":      p.EstadoLabel(),
		}
		if p.IDMarcado.Valid {
			entry["idmarcado"] = p.IDMarcado.Int64
			if p.Hora.Valid {
				entry["hora_marcado"] = localtime.FormatLocal(p.Hora.Time)
			}
			if p.Diferencia.Valid {
				entry["diferencia"] = p.Diferencia.Int64
			}
		}
		data[i] = entry
	}
	return data
}

// parseInstant accepts the two timestamp shapes the app sends: local civil
// time and RFC3339.
func parseInstant(s string) (time.Time, error) {
	if t, err := localtime.ParseLocal(s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, schedule.ErrInvalidInstant
}
