package dummydb

import (
	"sync"

	"github.com/wepgcomp/wepgcomp/core/evaluation"
	"github.com/wepgcomp/wepgcomp/core/event"
	"github.com/wepgcomp/wepgcomp/core/schedule"
	"github.com/wepgcomp/wepgcomp/core/submission"
	"github.com/wepgcomp/wepgcomp/core/user"
)

// DB is an in-memory stand-in for the real database. A single lock guards all
// tables so multi-table operations stay atomic.
type DB struct {
	mu sync.RWMutex

	users       map[string]*user.User
	emailTokens map[string]*user.EmailToken

	editions map[string]*event.Edition
	rooms    map[string]*event.Room

	blocks        map[string]*schedule.Block
	presentations map[string]*schedule.Presentation

	submissions map[string]*submission.Submission
	evaluations map[string]*evaluation.Evaluation
}

func Open() (*DB, error) {
	db := new(DB)
	db.reset()
	return db, nil
}

// Reset drops all rows; used between tests.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.reset()
}

func (db *DB) reset() {
	db.users = make(map[string]*user.User)
	db.emailTokens = make(map[string]*user.EmailToken)
	db.editions = make(map[string]*event.Edition)
	db.rooms = make(map[string]*event.Room)
	db.blocks = make(map[string]*schedule.Block)
	db.presentations = make(map[string]*schedule.Presentation)
	db.submissions = make(map[string]*submission.Submission)
	db.evaluations = make(map[string]*evaluation.Evaluation)
}
