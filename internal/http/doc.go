// Package http exposes the tutoring portal over JSON HTTP.
//
// Every route except GET /healthz requires a bearer token in the
// Authorization header or a `session_token` cookie. The token is resolved to
// a principal whose role always comes from the stored profile.
//
//   - GET /events?view=grid&month=YYYY-MM: the 42 cell month grid.
//   - GET /events?from=&to=: the chronological session list. Bounds are RFC 3339.
//   - POST /events, DELETE /events/{id}: schedule or remove a session.
//     Body: {"title","start","duration_minutes","student_id","notes"}.
//   - GET /notes, POST /notes, DELETE /notes/{id}: tutor notes with their materials.
//   - GET /materials, POST /materials (multipart "file" plus "student_id",
//     "note_id", "event_id"), DELETE /materials/{id}, GET /materials/{id}/url.
//   - GET /students: student directory for tutors and admins.
//   - GET /profiles, POST /profiles: admin profile management.
//   - GET /me: the caller's own profile.
//
// Errors are rendered as {"error": "...", "fields": {...}}. Request and
// response DTOs live alongside their handlers.
package http
