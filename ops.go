package deuxgo

import (
	"encoding/json"
	"fmt"
	"time"
)

// OpType identifies the kind of mutation a pending operation replays.
type OpType string

const (
	OpCreate     OpType = "CREATE"
	OpUpdate     OpType = "UPDATE"
	OpDelete     OpType = "DELETE"
	OpToggleDone OpType = "TOGGLE_DONE"
	OpReposition OpType = "REPOSITION"
)

// OpPayload is the operation-specific argument bag, one variant per OpType.
// The JSON field names are the wire contract with the remote service and are
// also the persisted form in the pending_operations table.
type OpPayload interface {
	isOpPayload()
}

type CreatePayload struct {
	Text string `json:"text"`
	Date string `json:"current_date"`
}

type UpdatePayload struct {
	Text string `json:"text"`
}

type DeletePayload struct{}

type TogglePayload struct {
	Done bool `json:"done"`
}

type RepositionPayload struct {
	Date     string `json:"current_date"`
	Position int    `json:"position"`
}

func (CreatePayload) isOpPayload()     {}
func (UpdatePayload) isOpPayload()     {}
func (DeletePayload) isOpPayload()     {}
func (TogglePayload) isOpPayload()     {}
func (RepositionPayload) isOpPayload() {}

// EncodePayload serializes a payload for storage. The payload variant must
// match the operation type.
func EncodePayload(t OpType, p OpPayload) ([]byte, error) {
	if err := checkPayloadType(t, p); err != nil {
		return nil, err
	}
	return json.Marshal(p)
}

// DecodePayload deserializes a stored payload back into the variant for the
// given operation type.
func DecodePayload(t OpType, data []byte) (OpPayload, error) {
	switch t {
	case OpCreate:
		var p CreatePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		return p, nil
	case OpUpdate:
		var p UpdatePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		return p, nil
	case OpDelete:
		return DeletePayload{}, nil
	case OpToggleDone:
		var p TogglePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		return p, nil
	case OpReposition:
		var p RepositionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown operation type %q", t)
	}
}

func checkPayloadType(t OpType, p OpPayload) error {
	var ok bool
	switch t {
	case OpCreate:
		_, ok = p.(CreatePayload)
	case OpUpdate:
		_, ok = p.(UpdatePayload)
	case OpDelete:
		_, ok = p.(DeletePayload)
	case OpToggleDone:
		_, ok = p.(TogglePayload)
	case OpReposition:
		_, ok = p.(RepositionPayload)
	default:
		return fmt.Errorf("unknown operation type %q", t)
	}
	if !ok {
		return fmt.Errorf("payload %T does not match operation type %s", p, t)
	}
	return nil
}

// OpRecord represents the data needed to enqueue a pending operation
type OpRecord struct {
	Type        OpType
	TodoID      int64 // server id target; 0 means not yet known
	LocalTodoID int64 // local id used to resolve TodoID after the CREATE syncs
	Payload     OpPayload
}

// PendingOp represents a queued operation that exists in the database.
// ID is assigned by the store and defines replay order.
type PendingOp struct {
	OpRecord
	ID         int64
	Timestamp  time.Time
	RetryCount int
}
