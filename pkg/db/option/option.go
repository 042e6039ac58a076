package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before it is executed.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type QueryOptionFunc func(*gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

type Operator string

const (
	EQ  Operator = "="
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator adds a single comparison. Unknown operators fall back to equality.
func ApplyOperator(cond Condition) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		op := cond.Operator
		switch op {
		case EQ, GT, GTE, LT, LTE:
		default:
			op = EQ
		}
		return db.Where(fmt.Sprintf("%s %s ?", cond.Field, op), cond.Value)
	})
}

type QuerySortBy struct {
	Field string
	Desc  bool
	Allow map[string]bool
}

// WithSortBy orders by Field when it is allowed. An empty Field sorts by created_at desc.
func WithSortBy(sort QuerySortBy) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(sort.Field)
		desc := sort.Desc
		if field == "" {
			field, desc = "created_at", true
		}
		if sort.Allow != nil && !sort.Allow[field] {
			return db
		}
		if desc {
			return db.Order(field + " DESC")
		}
		return db.Order(field + " ASC")
	})
}

func WithLimit(limit int) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}
