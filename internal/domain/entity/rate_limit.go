package entity

import "time"

// RateLimitWindow es el estado de la ventana fija de un usuario.
type RateLimitWindow struct {
	UserID  string
	Count   int
	ResetAt time.Time
}

// RateLimitRule cuota de solicitudes admitidas por ventana fija.
type RateLimitRule struct {
	Quota  int
	Window time.Duration
}

// Next aplica la ventana fija sobre el estado actual (nil si no existe) y devuelve la
// siguiente ventana y si la solicitud se admite. Un rechazo deja la ventana intacta.
func (r RateLimitRule) Next(current *RateLimitWindow, userID string, now time.Time) (RateLimitWindow, bool) {
	if current == nil || !now.Before(current.ResetAt) {
		return RateLimitWindow{UserID: userID, Count: 1, ResetAt: now.Add(r.Window)}, true
	}
	if current.Count < r.Quota {
		next := *current
		next.Count++
		return next, true
	}
	return *current, false
}
