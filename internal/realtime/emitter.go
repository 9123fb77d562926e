//go:generate go run go.uber.org/mock/mockgen -source=emitter.go -destination=../mocks/mock_emitter.go -package=mocks
package realtime

import "restaurant-pos-api/internal/protocol"

// Emitter is the contract producers use to push an event into a restaurant room.
// Implementations must not block on slow clients.
type Emitter interface {
	Emit(restaurantID string, payload protocol.Payload) error
}
