package turnos

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTurnoNotFound means no turno matched the id (and vehicle, when given).
	ErrTurnoNotFound = errors.New("turno no encontrado")

	// ErrTurnoHoraNotFound means no scheduled stop links the turno and punto.
	ErrTurnoHoraNotFound = errors.New("no se encontró la relación turno-hora")

	// ErrAlreadyStarted rejects a start retry on an EN_RUTA turno.
	ErrAlreadyStarted = errors.New("este viaje ya fue iniciado anteriormente")

	// ErrDeserto rejects starting a turno already marked DESERTO.
	ErrDeserto = errors.New("no se puede iniciar un turno marcado como DESERTO")

	// ErrFinalizado rejects starting a turno already FINALIZADO.
	ErrFinalizado = errors.New("no se puede iniciar un turno finalizado")

	// ErrPastThreshold means the lateness window was exceeded; the engine
	// deserts the turno as a side effect before returning this.
	ErrPastThreshold = errors.New("el turno ha sido marcado como DESERTO por exceder el límite de retraso")

	// ErrInvalidTransition rejects any other illegal state change, e.g.
	// finalizing a turno that is not EN_RUTA.
	ErrInvalidTransition = errors.New("el turno no está en estado EN RUTA")

	// ErrAlreadyMarked rejects a second physical mark for the same scheduled
	// stop. Enforced by a partial unique index on marcados.
	ErrAlreadyMarked = errors.New("el punto ya fue marcado en este turno")
)

// TooEarlyError rejects a start attempt before the scheduled hour. It keeps
// the remaining minutes so callers can render an actionable message.
type TooEarlyError struct {
	MinutesLeft int
	Scheduled   time.Time
}

func (e *TooEarlyError) Error() string {
	return fmt.Sprintf("aún faltan %d minutos para la hora programada", e.MinutesLeft)
}
