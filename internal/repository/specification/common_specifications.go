package specification

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderBy sorts by a single column. The column name is quoted by gorm.
type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	if s.Field == "" {
		return db
	}
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: s.Field}, Desc: s.Desc})
}

// Pagination limits the result set. A non-positive limit leaves it unbounded.
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	if s.Limit > 0 {
		db = db.Limit(s.Limit)
	}
	if s.Offset > 0 {
		db = db.Offset(s.Offset)
	}
	return db
}

type ByID struct {
	ID string
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}
