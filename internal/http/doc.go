// Package http provides HTTP handlers and middleware for the room booking API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"email","password"}.
//     Response: {"token","expires_at","principal"} with the token also surfaced
//     via the `X-Session-Token` header and a `session_token` cookie.
//   - DELETE /sessions/current: revokes the caller's session token extracted
//     from the Authorization header or session cookie. Returns 204 No Content.
//   - DELETE /sessions/{token}: administrator controlled revocation of an
//     arbitrary token.
//   - GET /bookings, POST /bookings, GET /bookings/{id}, PUT /bookings/{id}:
//     booking management endpoints exchanging the `bookingDTO` payload defined
//     in booking_handler.go. Creating with a recurrence block books the whole
//     series atomically and returns every occurrence.
//   - POST /bookings/{id}/approve: confirms a pending booking. Requires
//     approval capability.
//   - POST /bookings/{id}/cancel?scope=instance|series: cancels a booking, or
//     every remaining occurrence of its series.
//   - PUT /bookings/{id}/attendance: records an accept or decline for an
//     invited participant. Body: {"accepted"}.
//   - GET /rooms, POST /rooms, GET /rooms/{id}, PUT /rooms/{id},
//     DELETE /rooms/{id}, GET /rooms/{id}/policy: room catalog endpoints
//     exchanging the `roomDTO` payload defined in room_handler.go. Listing is
//     available to any authenticated principal while mutations require admin
//     privileges.
//   - GET /users, POST /users, PUT /users/{id}, DELETE /users/{id}:
//     administrator controlled user management endpoints exchanging the
//     `userDTO` payload defined in user_handler.go.
//
// Conflicts (slot overlaps, lost lifecycle races, closed cancellation windows)
// map to 409; policy and validation failures map to 422. Request/response DTOs
// live alongside their respective handlers so tests and documentation share
// the same ground truth.
package http
