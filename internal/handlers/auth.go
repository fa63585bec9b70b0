package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"rutacontrol-backend/internal/auth"
	"rutacontrol-backend/internal/config"
	"rutacontrol-backend/internal/middleware"
	"rutacontrol-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginRow carries the driver profile the app shows after login: account,
// empresa branding and the assigned vehicle, in one join.
type loginRow struct {
	ID             int64           `db:"id"`
	Usuario        string          `db:"usuario"`
	Password       string          `db:"password"`
	PrimeraVez     int             `db:"primera_vez"`
	DNI            string          `db:"dni"`
	Nombres        string          `db:"nombres"`
	Foto           sql.NullString  `db:"foto"`
	EstadoUsuario  int             `db:"estado_usuario"`
	FkIDEmpresa    int64           `db:"fkidempresa"`
	Empresa        string          `db:"empresa"`
	ColorEmpresa   sql.NullString  `db:"color_empresa"`
	Logo           sql.NullString  `db:"logo"`
	IDVehiculo     sql.NullInt64   `db:"idvehiculo"`
	Placa          sql.NullString  `db:"placa"`
	ModeloVehiculo sql.NullString  `db:"modelo_vehiculo"`
	Marca          sql.NullString  `db:"marca"`
	Anio           sql.NullInt64   `db:"anio"`
}

// Login authenticates a driver against the legacy Laravel password store
// and issues a JWT for the session
func Login(db *sqlx.DB, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Cuerpo de solicitud inválido")
			return
		}

		log.Printf("🔐 Login attempt for: %s", req.Username)

		if req.Username == "" || req.Password == "" {
			utils.RespondError(w, http.StatusBadRequest, "Nombre de usuario y contraseña son obligatorios")
			return
		}

		var row loginRow
		query := `
			SELECT
				u.id,
				u.name AS usuario,
				u.password,
				u.primera_vez,
				u.dni,
				u.nombres,
				u.profile_photo_path AS foto,
				u.estado AS estado_usuario,
				u.fkidempresa,
				e.nombre AS empresa,
				e.color AS color_empresa,
				e.logo,
				v.id AS idvehiculo,
				v.placa,
				v.modelo AS modelo_vehiculo,
				v.marca,
				v.anio
			FROM users u
			JOIN empresas e ON e.id = u.fkidempresa
			LEFT JOIN vehiculos v ON v.fkiduser = u.id
			WHERE u.name = $1 AND u.estado = 1 AND u.role = 'driver'`

		err := db.Get(&row, query, req.Username)
		if err == sql.ErrNoRows {
			log.Printf("❌ User not found: %s", req.Username)
			utils.RespondError(w, http.StatusUnauthorized, "Credenciales incorrectas")
			return
		}
		if err != nil {
			log.Printf("❌ Error querying user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error interno del servidor")
			return
		}

		if !auth.VerifyLaravelHash(req.Password, row.Password) {
			log.Printf("❌ Invalid password for: %s", req.Username)
			utils.RespondError(w, http.StatusUnauthorized, "Credenciales incorrectas")
			return
		}

		userData := map[string]interface{}{
			"idUsuarios":      row.ID,
			"dni":             row.DNI,
			"usuario":         row.Usuario,
			"nombres":         row.Nombres,
			"estado":          row.EstadoUsuario,
			"foto":            nullableString(row.Foto),
			"fk_idempresa":    row.FkIDEmpresa,
			"empresa":         row.Empresa,
			"color_empresa":   nullableString(row.ColorEmpresa),
			"logo":            nullableString(row.Logo),
			"idvehiculo":      nullableInt(row.IDVehiculo),
			"placa":           nullableString(row.Placa),
			"modelo_vehiculo": nullableString(row.ModeloVehiculo),
			"marca":           nullableString(row.Marca),
			"anio":            nullableInt(row.Anio),
			"primera_vez":     row.PrimeraVez,
		}

		if row.PrimeraVez == 1 {
			utils.RespondJSON(w, http.StatusForbidden, map[string]interface{}{
				"success": false,
				"message": "Es necesario cambiar la contraseña antes de continuar",
				"user":    userData,
			})
			return
		}

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id":  row.ID,
			"username": row.Usuario,
			"role":     "driver",
			"iat":      time.Now().Unix(),
			"exp":      time.Now().Add(7 * 24 * time.Hour).Unix(),
		})

		tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
		if err != nil {
			log.Println("❌ Failed to create token")
			utils.RespondError(w, http.StatusInternalServerError, "Error interno del servidor")
			return
		}

		log.Printf("✅ Login successful: %s", row.Usuario)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Inicio de sesión exitoso",
			"token":   tokenString,
			"user":    userData,
		})
	}
}

type cambiarPasswordRequest struct {
	Username        string `json:"username"`
	NuevaContrasena string `json:"nuevaContraseña"`
}

// CambiarPassword rotates a password, writing it back in the Laravel
// format so the admin panel keeps working, and clears the first-login flag
func CambiarPassword(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cambiarPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Cuerpo de solicitud inválido")
			return
		}

		if req.Username == "" || req.NuevaContrasena == "" {
			utils.RespondError(w, http.StatusBadRequest, "Faltan datos obligatorios")
			return
		}

		hashed, err := auth.GenerateLaravelHash(req.NuevaContrasena)
		if err != nil {
			log.Printf("❌ Error hashing password: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al cambiar la contraseña")
			return
		}

		res, err := db.Exec(
			`UPDATE users SET password = $1, primera_vez = 0 WHERE name = $2`,
			hashed, req.Username)
		if err != nil {
			log.Printf("❌ Error updating password: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al cambiar la contraseña")
			return
		}

		affected, _ := res.RowsAffected()
		if affected == 0 {
			utils.RespondError(w, http.StatusNotFound, "Usuario no encontrado")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Contraseña actualizada correctamente",
		})
	}
}

// Logout acknowledges the session close; tokens simply expire client-side
func Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Sesión cerrada correctamente",
		})
	}
}

type fcmTokenRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"device_type"`
}

// RegisterFCMToken stores a device push token for the authenticated driver
func RegisterFCMToken(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "No autorizado")
			return
		}

		var req fcmTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Cuerpo de solicitud inválido")
			return
		}
		if req.Token == "" || (req.DeviceType != "ios" && req.DeviceType != "android") {
			utils.RespondError(w, http.StatusBadRequest, "Se requieren token y device_type (ios/android)")
			return
		}

		_, err := db.Exec(
			`INSERT INTO fcm_tokens (user_id, token, device_type)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, device_type = EXCLUDED.device_type`,
			userClaims.UserID, req.Token, req.DeviceType)
		if err != nil {
			log.Printf("❌ Error registering FCM token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al registrar el token")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Token registrado correctamente",
		})
	}
}

func nullableString(n sql.NullString) interface{} {
	if !n.Valid {
		return nil
	}
	return n.String
}

func nullableInt(n sql.NullInt64) interface{} {
	if !n.Valid {
		return nil
	}
	return n.Int64
}
