package sqlxrepos

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/wepgcomp/wepgcomp/core"
)

const pqUniqueViolation = "23505"

// trapNoRowsErr maps psql "no rows" err to the domain's not-found error
func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// trapUniqueErr maps a psql unique violation to the domain error registered
// for the violated constraint
func trapUniqueErr(err error, byConstraint map[string]error, msg string) error {
	var pqErr *pq.Error
	if errors.As(errors.Cause(err), &pqErr) && pqErr.Code == pqUniqueViolation {
		if domainErr, ok := byConstraint[pqErr.Constraint]; ok {
			return domainErr
		}
	}
	return errors.Wrap(err, msg)
}

// orderBy builds an ORDER BY clause from ordering. Field names come from the
// request, so only columns named in sortable make it into the SQL text;
// unknown fields are dropped.
func orderBy(ordering []core.DBOrdering, sortable []string, fallback string) string {
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		for _, col := range sortable {
			if ord.Field == col {
				orderList = append(orderList, ord.String())
				break
			}
		}
	}
	if len(orderList) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}
