package models

import "time"

// EntityKind discriminates the endpoint types of a connection edge.
type EntityKind string

const (
	KindUser       EntityKind = "USER"
	KindTeam       EntityKind = "TEAM"
	KindCourse     EntityKind = "COURSE"
	KindCollection EntityKind = "COLLECTION"
)

// ConnectType records which side initiated the edge.
type ConnectType string

const (
	ConnectTypeInvite  ConnectType = "INVITE"
	ConnectTypeRequest ConnectType = "REQUEST"
)

// ConnectStatus is the lifecycle state of an edge. ACCEPTED and REJECTED are
// terminal; every edge starts PENDING unless a bypass accepts it on creation.
type ConnectStatus string

const (
	ConnectStatusPending  ConnectStatus = "PENDING"
	ConnectStatusAccepted ConnectStatus = "ACCEPTED"
	ConnectStatusRejected ConnectStatus = "REJECTED"
)

// AccessLevel is the outcome of access resolution.
type AccessLevel string

const (
	AccessRoot   AccessLevel = "ROOT"
	AccessShared AccessLevel = "SHARED"
	AccessNone   AccessLevel = "NONE"
)

// Satisfies reports whether the level meets the required minimum.
func (l AccessLevel) Satisfies(minimum AccessLevel) bool {
	switch minimum {
	case AccessRoot:
		return l == AccessRoot
	case AccessShared:
		return l == AccessRoot || l == AccessShared
	case AccessNone, "":
		return true
	default:
		return false
	}
}

// ConnectionKey is the natural key of an edge. ScopeID carries the team
// context for user↔course and user↔collection edges and is empty otherwise.
type ConnectionKey struct {
	SubjectKind EntityKind `db:"subject_kind" json:"subject_kind"`
	SubjectID   string     `db:"subject_id" json:"subject_id"`
	ObjectKind  EntityKind `db:"object_kind" json:"object_kind"`
	ObjectID    string     `db:"object_id" json:"object_id"`
	ScopeID     string     `db:"scope_id" json:"scope_id,omitempty"`
}

// Connection is a directed, typed relationship edge stored in the connections table.
type Connection struct {
	ID            string        `db:"id" json:"id"`
	SubjectKind   EntityKind    `db:"subject_kind" json:"subject_kind"`
	SubjectID     string        `db:"subject_id" json:"subject_id"`
	ObjectKind    EntityKind    `db:"object_kind" json:"object_kind"`
	ObjectID      string        `db:"object_id" json:"object_id"`
	ScopeID       string        `db:"scope_id" json:"scope_id,omitempty"`
	ConnectType   ConnectType   `db:"connect_type" json:"connect_type"`
	ConnectStatus ConnectStatus `db:"connect_status" json:"connect_status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Key returns the natural key of the edge.
func (c Connection) Key() ConnectionKey {
	return ConnectionKey{
		SubjectKind: c.SubjectKind,
		SubjectID:   c.SubjectID,
		ObjectKind:  c.ObjectKind,
		ObjectID:    c.ObjectID,
		ScopeID:     c.ScopeID,
	}
}

// Terminal reports whether the edge has reached a final status.
func (c Connection) Terminal() bool {
	return c.ConnectStatus == ConnectStatusAccepted || c.ConnectStatus == ConnectStatusRejected
}

// ConnectionDetail joins an edge with display labels for list responses.
type ConnectionDetail struct {
	Connection
	SubjectLabel string `db:"subject_label" json:"subject_label"`
	ObjectLabel  string `db:"object_label" json:"object_label"`
}

// ConnectionFilter captures filtering criteria for listing edges.
type ConnectionFilter struct {
	SubjectKind   EntityKind
	SubjectID     string
	ObjectKind    EntityKind
	ObjectID      string
	ScopeID       string
	ConnectType   ConnectType
	ConnectStatus ConnectStatus
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// CollectionCourse links a course into a collection. Membership rows carry no
// status; they change what accepted collection edges grant.
type CollectionCourse struct {
	CollectionID string    `db:"collection_id" json:"collection_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AccessDecision is the result of resolving an actor against a resource.
type AccessDecision struct {
	Level AccessLevel `json:"level"`
	// ViaCollectionID is set when shared access is inherited through a
	// collection membership rather than a direct edge.
	ViaCollectionID string `json:"via_collection_id,omitempty"`
}
