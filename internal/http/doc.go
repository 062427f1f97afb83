// Package http provides HTTP handlers and middleware for the reservation API.
//
// The router exposes the following endpoints:
//   - GET /reservations, POST /reservations, GET /reservations/{id},
//     PUT /reservations/{id}, DELETE /reservations/{id}: reservation management
//     exchanging the `reservationDTO` payload defined in reservation_handler.go.
//   - POST /reservations/{id}/participation: records the caller's answer to an
//     invitation. Body: {"accepted":bool}.
//   - POST /reservations/{id}/attendance: records a single attendance
//     observation. Body: {"participant_id","present"}.
//   - GET /rooms, GET /turns: read-only catalogs served from the directory.
//   - GET /sanctions, POST /sanctions, GET /sanctions/{id},
//     DELETE /sanctions/{id}: sanction ledger endpoints. Mutations require the
//     administrator role; participants may list their own entries.
//   - POST /reconciliation/run: manual trigger for the reconciliation sweep,
//     gated behind a static operator token.
//
// Participant facing routes expect the X-Participant-ID header set by the
// campus gateway; the middleware resolves it against the participant
// directory and attaches the principal to the request context.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
