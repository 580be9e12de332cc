// Package http exposes the portal's machine-facing endpoints.
//
// The router serves:
//   - POST /webhooks/payments: payment gateway deliveries. Body:
//     {"event_type","payment_intent_id","status"}. The X-Webhook-Secret header
//     must carry the shared secret. Responds {"outcome"} where outcome is one
//     of applied, duplicate or ignored; redelivered events answer 200 so the
//     gateway stops retrying.
//   - GET /healthz: database reachability. Responds {"status":"ok"} or 503.
package http
