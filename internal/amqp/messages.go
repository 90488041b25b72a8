package amqp

import (
	"encoding/json"
	"time"
)

// TransactionDeletedMessage is published whenever a family-scoped transaction
// is removed. The worker turns it into a notification row for the owner, so
// the payload carries everything needed to render the notification text.
type TransactionDeletedMessage struct {
	TransactionID   string    `json:"transaction_id"`
	OwnerUserID     string    `json:"owner_user_id"`
	DeletedByUserID string    `json:"deleted_by_user_id"`
	TransactionName string    `json:"transaction_name"`
	FamilyID        string    `json:"family_id"`
	FamilyName      string    `json:"family_name"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewTransactionDeletedMessage creates a deletion message stamped with the
// current time.
func NewTransactionDeletedMessage(txID, ownerID, deletedBy, txName, familyID, familyName string) *TransactionDeletedMessage {
	return &TransactionDeletedMessage{
		TransactionID:   txID,
		OwnerUserID:     ownerID,
		DeletedByUserID: deletedBy,
		TransactionName: txName,
		FamilyID:        familyID,
		FamilyName:      familyName,
		Timestamp:       time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionDeletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionDeletedMessageFromJSON creates a message from JSON bytes
func TransactionDeletedMessageFromJSON(data []byte) (*TransactionDeletedMessage, error) {
	var msg TransactionDeletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
