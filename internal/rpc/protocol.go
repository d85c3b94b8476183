// Package rpc is the wire protocol a worker uses to rewrite a remote
// entity operation into a local one against an index daemon (§6):
// newline-delimited JSON Request/Response envelopes over a Unix domain
// socket (or TCP, for remote workers), narrowed from the teacher's
// internal/rpc/protocol.go shape down to the six INDEX_* operations this
// spec names. deletedFlag of a remote entity is always treated as true
// from the caller's side, so no INDEX_* operation reports or restores it.
package rpc

import (
	"encoding/json"
	"time"
)

// Operation names, exactly the six the daemon dispatches (§6).
const (
	OpNewEntity         = "INDEX_NEW_ENTITY"
	OpUpdateEntity      = "INDEX_UPDATE_ENTITY"
	OpEntityUnlock      = "INDEX_ENTITY_UNLOCK"
	OpEntityUpdateInfos = "INDEX_ENTITY_UPDATE_INFOS"
	OpEntityDelete      = "INDEX_ENTITY_DELETE"
	OpEntityPrune       = "INDEX_ENTITY_PRUNE"
)

// Request is the envelope a client sends, following the teacher's
// Request{Operation, Args, RequestID} shape.
type Request struct {
	Operation string          `json:"operation"`
	Args      json.RawMessage `json:"args"`
	RequestID string          `json:"request_id,omitempty"`
}

// Response is the envelope a daemon returns, following the teacher's
// Response{Success, Data, Error} shape.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewEntityArgs is INDEX_NEW_ENTITY's argument shape.
type NewEntityArgs struct {
	JobUUID         string    `json:"job_uuid"`
	ScheduleUUID    string    `json:"schedule_uuid"`
	HostName        string    `json:"host_name"`
	UserName        string    `json:"user_name"`
	ArchiveType     int       `json:"archive_type"`
	CreatedDateTime time.Time `json:"created_date_time"`
	Locked          bool      `json:"locked"`
}

// NewEntityResult is INDEX_NEW_ENTITY's result shape.
type NewEntityResult struct {
	EntityID int64 `json:"entity_id"`
}

// UpdateEntityArgs is INDEX_UPDATE_ENTITY's argument shape; a nil pointer
// field leaves that column unchanged, mirroring index.EntityUpdate.
type UpdateEntityArgs struct {
	EntityID int64   `json:"entity_id"`
	HostName *string `json:"host_name,omitempty"`
	UserName *string `json:"user_name,omitempty"`
	Type     *int    `json:"type,omitempty"`
}

// EntityIDArgs is the argument shape shared by INDEX_ENTITY_UNLOCK,
// INDEX_ENTITY_UPDATE_INFOS, INDEX_ENTITY_DELETE, and
// INDEX_ENTITY_PRUNE — every remaining INDEX_* operation takes only an
// entity id.
type EntityIDArgs struct {
	EntityID int64 `json:"entity_id"`
}
