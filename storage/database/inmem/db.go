package inmemdb

import (
	"sync"

	"github.com/iamthanushgowdap/apsconnect/core/academic"
	"github.com/iamthanushgowdap/apsconnect/core/account"
)

type (
	DB struct {
		account   *accountTable
		branch    *branchTable
		academics *academicTables
	}

	accountTable struct {
		sync.RWMutex
		table map[string]*account.Account
	}

	branchTable struct {
		sync.RWMutex
		table map[string]*academic.Branch
	}

	academicTables struct {
		sync.RWMutex
		assignments map[string]*academic.Assignment
		timetables  map[string]*academic.Timetable
		sessions    map[string]*academic.AttendanceSession
	}
)

func Open() (*DB, error) {
	db := &DB{
		account: &accountTable{table: make(map[string]*account.Account)},
		branch:  &branchTable{table: make(map[string]*academic.Branch)},
		academics: &academicTables{
			assignments: make(map[string]*academic.Assignment),
			timetables:  make(map[string]*academic.Timetable),
			sessions:    make(map[string]*academic.AttendanceSession),
		},
	}
	return db, nil
}
