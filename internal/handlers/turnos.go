package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"rutacontrol-backend/internal/localtime"
	"rutacontrol-backend/internal/models"
	"rutacontrol-backend/internal/services"
	"rutacontrol-backend/internal/turnos"
	"rutacontrol-backend/internal/websocket"
	"rutacontrol-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// GetTurnos lists a vehicle's turnos for a given civil date
func GetTurnos(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /turnos")

		vehiculoID, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		fecha := r.URL.Query().Get("fecha")
		if err != nil || fecha == "" {
			utils.RespondError(w, http.StatusBadRequest, "Se requiere el ID del vehículo y la fecha")
			return
		}

		dayStart, perr := time.ParseInLocation("2006-01-02", fecha, localtime.Lima)
		if perr != nil {
			utils.RespondError(w, http.StatusBadRequest, "Formato de fecha inválido, debe ser YYYY-MM-DD")
			return
		}
		dayEnd := dayStart.Add(24 * time.Hour)

		var lista []models.Turno
		err = db.Select(&lista,
			`SELECT * FROM turnos
			 WHERE fkidvehiculo = $1 AND hora >= $2 AND hora < $3
			 ORDER BY hora ASC`,
			vehiculoID, dayStart, dayEnd)
		if err != nil {
			log.Printf("❌ Error al obtener los turnos: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al obtener los turnos")
			return
		}

		if len(lista) == 0 {
			utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    []interface{}{},
				"message": "No hay turnos para la fecha seleccionada",
			})
			return
		}

		data := make([]map[string]interface{}, len(lista))
		for i, t := range lista {
			data[i] = map[string]interface{}{
				"id":     t.ID,
				"hora":   localtime.FormatLocal(t.Hora),
				"estado": t.Estado,
			}
		}
		utils.RespondSuccess(w, data)
	}
}

// GetTurnoActivo resolves today's startable turno for a vehicle, deserting
// stale pending turnos along the way
func GetTurnoActivo(db *sqlx.DB, engine *turnos.Engine, hub *websocket.Hub, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /turno-activo")

		vehiculoID, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "ID de vehículo no válido")
			return
		}

		result, err := engine.ActiveShiftFor(vehiculoID, localtime.Now())
		if err != nil {
			log.Printf("💥 Error en /turno-activo: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al buscar turno activo")
			return
		}

		notifyDesertions(db, hub, fcm, vehiculoID, result.Desertados)

		switch {
		case result.SinTurnos:
			utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"success": false,
				"message": "No tiene turnos asignados para hoy",
				"data":    map[string]interface{}{"sin_turnos": true},
			})

		case result.EnCurso != nil:
			utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"success": false,
				"message": "Ya existe un turno en curso",
				"data":    map[string]interface{}{"turno_en_curso": result.EnCurso.ID},
			})

		case result.Candidato == nil:
			utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"success": false,
				"message": "No hay turnos pendientes dentro del margen horario permitido",
				"data":    map[string]interface{}{"sin_turnos_validos": true},
			})

		default:
			retrasoHoras := 0
			if result.MinutosRestantes < 0 {
				retrasoHoras = -result.MinutosRestantes / 60
			}
			utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data": map[string]interface{}{
					"turno": map[string]interface{}{
						"id":                result.Candidato.ID,
						"hora_programada":   localtime.FormatLocal(result.Candidato.Hora),
						"estado":            result.Candidato.Estado,
						"minutos_restantes": result.MinutosRestantes,
					},
					"puede_iniciar": result.PuedeIniciar,
					"retraso_horas": retrasoHoras,
				},
			})
		}
	}
}

type iniciarViajeRequest struct {
	IDTurno    int64 `json:"idturno"`
	IDVehiculo int64 `json:"idvehiculo"`
}

// IniciarViaje transitions a turno PENDIENTE → EN_RUTA
func IniciarViaje(db *sqlx.DB, engine *turnos.Engine, hub *websocket.Hub, fcm *services.FCMService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /iniciar-viaje")

		var req iniciarViajeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDTurno == 0 || req.IDVehiculo == 0 {
			utils.RespondError(w, http.StatusBadRequest, "Se requiere ID del turno y ID del vehículo")
			return
		}

		now := localtime.Now()
		result, err := engine.Start(req.IDTurno, req.IDVehiculo, now)
		if err != nil {
			if errors.Is(err, turnos.ErrPastThreshold) {
				notifyDesertions(db, hub, fcm, req.IDVehiculo, []int64{req.IDTurno})
			}
			respondEngineError(w, err)
			return
		}

		hub.BroadcastTurnoEvent(websocket.TurnoEvent{
			Type:       "turno_iniciado",
			TurnoID:    result.Turno.ID,
			VehiculoID: req.IDVehiculo,
			Estado:     string(models.TurnoEnRuta),
		})
		notifyEstado(db, fcm, req.IDVehiculo, result.Turno.ID, string(models.TurnoEnRuta))

		log.Printf("✅ Turno %d iniciado (retraso: %dh)", result.Turno.ID, result.RetrasoHoras)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Viaje iniciado correctamente",
			"data": map[string]interface{}{
				"id_turno":        result.Turno.ID,
				"hora_programada": localtime.FormatLocalClock(result.Turno.Hora),
				"hora_inicio":     localtime.FormatLocalClock(result.HoraInicio),
				"estado":          "EN RUTA",
				"retraso_horas":   result.RetrasoHoras,
			},
		})
	}
}

type finalizarTurnoRequest struct {
	IDTurno int64 `json:"idTurno"`
}

// FinalizarTurno transitions a turno EN_RUTA → FINALIZADO
func FinalizarTurno(engine *turnos.Engine, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /finalizar-turno")

		var req finalizarTurnoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDTurno == 0 {
			utils.RespondError(w, http.StatusBadRequest, "Se requiere el ID del turno")
			return
		}

		now := localtime.Now()
		if err := engine.Finalize(req.IDTurno, now); err != nil {
			respondEngineError(w, err)
			return
		}

		hub.BroadcastTurnoEvent(websocket.TurnoEvent{
			Type:    "turno_finalizado",
			TurnoID: req.IDTurno,
			Estado:  string(models.TurnoFinalizado),
		})

		log.Printf("✅ Turno finalizado exitosamente: %d", req.IDTurno)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Turno finalizado correctamente",
			"data": map[string]interface{}{
				"id_turno":          req.IDTurno,
				"hora_finalizacion": localtime.FormatLocal(now),
			},
		})
	}
}

// GetViajeActivo checks whether the vehicle has an EN_RUTA turno
func GetViajeActivo(engine *turnos.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehiculoID, err := strconv.ParseInt(r.URL.Query().Get("idvehiculo"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Falta el id del vehículo")
			return
		}

		turno, err := engine.EnRuta(vehiculoID)
		if err != nil {
			log.Printf("❌ Error al consultar viaje activo: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al consultar")
			return
		}

		if turno == nil {
			utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"success":      true,
				"viaje_activo": false,
			})
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":      true,
			"viaje_activo": true,
			"turno":        turno,
		})
	}
}

// LimpiarTurnos deserts every pending turno scheduled before today.
// Exposed for the daily scheduled job.
func LimpiarTurnos(engine *turnos.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /limpiar-turnos")

		affected, err := engine.ReapStale(localtime.Now())
		if err != nil {
			log.Printf("💥 Error al limpiar turnos: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error interno al limpiar los turnos")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":         true,
			"message":         "Turnos actualizados correctamente",
			"filas_afectadas": affected,
		})
	}
}

// respondEngineError maps the engine's typed rejections onto HTTP statuses
// and the standard envelope. State is always unchanged on rejection except
// for ErrPastThreshold, where the turno was just deserted.
func respondEngineError(w http.ResponseWriter, err error) {
	var tooEarly *turnos.TooEarlyError
	switch {
	case errors.As(err, &tooEarly):
		utils.RespondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success":           false,
			"message":           "Aún faltan " + strconv.Itoa(tooEarly.MinutesLeft) + " minutos para la hora programada (" + localtime.FormatLocalClock(tooEarly.Scheduled) + ")",
			"hora_programada":   localtime.FormatLocal(tooEarly.Scheduled),
			"hora_actual":       localtime.FormatLocal(localtime.Now()),
			"minutos_restantes": tooEarly.MinutesLeft,
			"puede_iniciar":     false,
		})
	case errors.Is(err, turnos.ErrTurnoNotFound):
		utils.RespondError(w, http.StatusNotFound, "Turno no encontrado para este vehículo")
	case errors.Is(err, turnos.ErrAlreadyStarted):
		utils.RespondError(w, http.StatusConflict, "Este viaje ya fue iniciado anteriormente")
	case errors.Is(err, turnos.ErrDeserto):
		utils.RespondError(w, http.StatusForbidden, "No se puede iniciar un turno marcado como DESERTO")
	case errors.Is(err, turnos.ErrFinalizado):
		utils.RespondError(w, http.StatusForbidden, "No se puede iniciar un turno finalizado")
	case errors.Is(err, turnos.ErrPastThreshold):
		utils.RespondError(w, http.StatusForbidden, "El turno ha sido marcado como DESERTO por exceder el límite de retraso")
	case errors.Is(err, turnos.ErrInvalidTransition):
		utils.RespondError(w, http.StatusConflict, "El turno no está en estado EN RUTA")
	default:
		log.Printf("💥 Error interno: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Error interno del servidor")
	}
}

// driverTokens resolves the push tokens of the vehicle's assigned driver.
func driverTokens(db *sqlx.DB, vehiculoID int64) ([]string, error) {
	var tokens []string
	err := db.Select(&tokens,
		`SELECT ft.token FROM fcm_tokens ft
		 JOIN vehiculos v ON v.fkiduser = ft.user_id
		 WHERE v.id = $1`,
		vehiculoID)
	return tokens, err
}

// notifyEstado pushes an FCM state-change alert to the vehicle's driver.
// Best effort: delivery failures only log.
func notifyEstado(db *sqlx.DB, fcm *services.FCMService, vehiculoID, turnoID int64, estado string) {
	if fcm == nil {
		return
	}
	tokens, err := driverTokens(db, vehiculoID)
	if err != nil {
		log.Printf("❌ Error consultando tokens FCM del vehículo %d: %v", vehiculoID, err)
		return
	}
	for _, token := range tokens {
		if err := fcm.SendTurnoUpdateNotification(token, turnoID, estado); err != nil {
			log.Printf("⚠️ FCM: %v", err)
		}
	}
}

// notifyDesertions pushes a WS event to dashboards and an FCM alert to the
// vehicle's driver for every turno deserted in this request. Best effort:
// delivery failures only log.
func notifyDesertions(db *sqlx.DB, hub *websocket.Hub, fcm *services.FCMService, vehiculoID int64, desertados []int64) {
	if len(desertados) == 0 {
		return
	}

	for _, turnoID := range desertados {
		hub.BroadcastTurnoEvent(websocket.TurnoEvent{
			Type:       "turno_desertado",
			TurnoID:    turnoID,
			VehiculoID: vehiculoID,
			Estado:     string(models.TurnoDeserto),
		})
	}

	if fcm == nil {
		return
	}

	tokens, err := driverTokens(db, vehiculoID)
	if err != nil {
		log.Printf("❌ Error consultando tokens FCM del vehículo %d: %v", vehiculoID, err)
		return
	}

	for _, turnoID := range desertados {
		var hora time.Time
		if err := db.Get(&hora, `SELECT hora FROM turnos WHERE id = $1`, turnoID); err != nil {
			continue
		}
		for _, token := range tokens {
			if err := fcm.SendTurnoDesertadoNotification(token, turnoID, localtime.FormatLocalClock(hora)); err != nil {
				log.Printf("⚠️ FCM: %v", err)
			}
		}
	}
}
