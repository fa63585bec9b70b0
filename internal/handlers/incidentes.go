package handlers

import (
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rutacontrol-backend/internal/config"
	"rutacontrol-backend/internal/localtime"
	"rutacontrol-backend/internal/models"
	"rutacontrol-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const maxUploadSize = 10 << 20 // 10 MB

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// ReportarIncidente records an incident for a turno, with an optional photo
// sent as multipart field foto_incidente
func ReportarIncidente(db *sqlx.DB, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/reportar_incidente")

		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Formulario inválido o archivo demasiado grande")
			return
		}

		turnoID, err := strconv.ParseInt(r.FormValue("fk_idturno"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Se requiere fk_idturno")
			return
		}
		descripcion := strings.TrimSpace(r.FormValue("descripcion"))
		if descripcion == "" {
			utils.RespondError(w, http.StatusBadRequest, "Se requiere la descripción del incidente")
			return
		}
		latitud, latErr := strconv.ParseFloat(r.FormValue("latitud"), 64)
		longitud, lonErr := strconv.ParseFloat(r.FormValue("longitud"), 64)
		if latErr != nil || lonErr != nil {
			utils.RespondError(w, http.StatusBadRequest, "Se requieren latitud y longitud válidas")
			return
		}

		var foto *string
		if file, header, ferr := r.FormFile("foto_incidente"); ferr == nil {
			defer file.Close()
			filename, serr := saveUpload(file, header.Filename, filepath.Join(cfg.UploadDir, "incidenteupload"))
			if serr != nil {
				log.Printf("❌ Error guardando foto de incidente: %v", serr)
				utils.RespondError(w, http.StatusBadRequest, "No se pudo guardar la foto del incidente")
				return
			}
			foto = &filename
		}

		var id int64
		err = db.QueryRow(
			`INSERT INTO incidentes (fkidturno, hora, descripcion, foto, latitud, longitud)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			turnoID, localtime.Now(), descripcion, models.ToNullString(foto), latitud, longitud,
		).Scan(&id)
		if err != nil {
			log.Printf("❌ Error registrando incidente: %v", err)
			msg := "Error al registrar el incidente"
			if cfg.IsDevelopment() {
				msg = err.Error()
			}
			utils.RespondError(w, http.StatusInternalServerError, msg)
			return
		}

		log.Printf("✅ Incidente %d registrado para turno %d", id, turnoID)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Incidente registrado correctamente",
			"data": map[string]interface{}{
				"id_incidente": id,
				"foto":         foto,
			},
		})
	}
}

// SubirFotoPerfil stores a driver's profile photo (multipart field
// foto_perfil) and updates the account's photo path
func SubirFotoPerfil(db *sqlx.DB, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: POST /api/subir_foto_perfil")

		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Formulario inválido o archivo demasiado grande")
			return
		}

		userID, err := strconv.ParseInt(r.FormValue("id_usuario"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Se requiere id_usuario")
			return
		}

		file, header, err := r.FormFile("foto_perfil")
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Se requiere el archivo foto_perfil")
			return
		}
		defer file.Close()

		filename, err := saveUpload(file, header.Filename, filepath.Join(cfg.UploadDir, "perfilupload"))
		if err != nil {
			log.Printf("❌ Error guardando foto de perfil: %v", err)
			utils.RespondError(w, http.StatusBadRequest, "No se pudo guardar la foto de perfil")
			return
		}

		res, err := db.Exec(`UPDATE users SET profile_photo_path = $1 WHERE id = $2`, filename, userID)
		if err != nil {
			log.Printf("❌ Error actualizando foto de perfil: %v", err)
			msg := "Error al actualizar la foto de perfil"
			if cfg.IsDevelopment() {
				msg = err.Error()
			}
			utils.RespondError(w, http.StatusInternalServerError, msg)
			return
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			utils.RespondError(w, http.StatusNotFound, "Usuario no encontrado")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Foto de perfil actualizada correctamente",
			"data":    map[string]interface{}{"foto": filename},
		})
	}
}

// GetIncidentesPorTurno lists the incidents reported during a turno
func GetIncidentesPorTurno(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		turnoID, err := strconv.ParseInt(chi.URLParam(r, "idTurno"), 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "ID de turno no válido")
			return
		}

		var incidentes []models.Incidente
		err = db.Select(&incidentes,
			`SELECT id, fkidturno, hora, descripcion, foto, latitud, longitud
			 FROM incidentes
			 WHERE fkidturno = $1
			 ORDER BY hora DESC`,
			turnoID)
		if err != nil {
			log.Printf("❌ Error consultando incidentes: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Error al obtener los incidentes")
			return
		}

		data := make([]map[string]interface{}, len(incidentes))
		for i, inc := range incidentes {
			data[i] = map[string]interface{}{
				"id":          inc.ID,
				"fkidturno":   inc.FkIDTurno,
				"hora":        localtime.FormatLocal(inc.Hora),
				"descripcion": inc.Descripcion,
				"foto":        models.FromNullString(inc.Foto),
				"latitud":     inc.Latitud,
				"longitud":    inc.Longitud,
			}
		}
		utils.RespondSuccess(w, data)
	}
}

// saveUpload writes the uploaded file under dir with a random name, keeping
// the original extension. Only image extensions are accepted.
func saveUpload(src io.Reader, originalName, dir string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedImageExts[ext] {
		return "", os.ErrInvalid
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	filename := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return filename, nil
}
