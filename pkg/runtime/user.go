package runtime

import "time"

// UserContext exposes the invoking user's timezone, locale, and a
// timezone-aware clock.
type UserContext struct {
	tz     string
	locale string
	loc    *time.Location
	now    func() time.Time
}

// User returns the user context, defaulting timezone to UTC and locale
// to "en" when the execution context leaves them unset.
func (r *Runtime) User() UserContext {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.user != nil {
		return *r.user
	}

	tz := r.execCtx.User.TimeZoneIANA
	if tz == "" {
		tz = "UTC"
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		r.log.WithField("tz", tz).Warn("Unknown timezone, falling back to UTC")

		tz = "UTC"
		loc = time.UTC
	}

	locale := r.execCtx.User.Locale
	if locale == "" {
		locale = "en"
	}

	r.user = &UserContext{tz: tz, locale: locale, loc: loc, now: r.now}

	return *r.user
}

// Now returns the current time in the user's timezone.
func (u UserContext) Now() time.Time { return u.now().In(u.loc) }

// TZ returns the user's IANA timezone name.
func (u UserContext) TZ() string { return u.tz }

// Locale returns the user's locale code.
func (u UserContext) Locale() string { return u.locale }

// Location returns the user's timezone location.
func (u UserContext) Location() *time.Location { return u.loc }
