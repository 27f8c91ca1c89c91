// Package stormsql turns SQL SELECT statements into storm queries.
package stormsql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/asdine/storm/v3/q"
	"github.com/pkg/errors"
	"github.com/xwb1989/sqlparser"
)

// A SelectClause contains all the parsed SQL data.
type SelectClause struct {
	SelectedFields  []string
	Count           bool
	Tablename       string
	Matcher         q.Matcher
	Skip            int
	Limit           int
	OrderBy         []string
	OrderByReversed bool
}

// ParseSelect parses the given SELECT statement.
// Columns can be named after the struct fields (UserID) or the table columns (user_id).
func ParseSelect(sql string) (*SelectClause, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse SQL")
	}

	s, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, errors.New("not a select statement")
	}

	var sc SelectClause

	// SELECT * ...
	// SELECT user_id, updated_at ...
	// SELECT count(*) ...
	for _, se := range s.SelectExprs {
		switch v := se.(type) {
		case *sqlparser.StarExpr:
			sc.SelectedFields = []string{}
		case *sqlparser.AliasedExpr:
			switch v := v.Expr.(type) {
			case *sqlparser.ColName:
				sc.SelectedFields = append(sc.SelectedFields, FieldName(v.Name.String()))
			case *sqlparser.FuncExpr:
				if !v.Name.EqualString("count") {
					return nil, errors.Errorf("unsupported function: %s", v.Name.String())
				}
				sc.SelectedFields = []string{}
				sc.Count = true
			default:
				return nil, errors.New("unsupported select expression")
			}
		default:
			return nil, errors.New("unsupported select expression")
		}
	}

	// FROM users
	if len(s.From) != 1 {
		return nil, errors.New("only one table can be selected")
	}
	table, ok := s.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return nil, errors.New("unsupported table expression")
	}
	sc.Tablename = sqlparser.GetTableName(table.Expr).String()

	// WHERE
	sc.Matcher = q.And()
	if s.Where != nil {
		if sc.Matcher, err = parseWhereExpr(s.Where.Expr); err != nil {
			return nil, err
		}
	}

	// LIMIT 5
	// LIMIT 2,5
	if s.Limit != nil {
		if s.Limit.Offset != nil {
			if sc.Skip, err = parseInt(s.Limit.Offset); err != nil {
				return nil, err
			}
		}
		if sc.Limit, err = parseInt(s.Limit.Rowcount); err != nil {
			return nil, err
		}
	}

	// ORDER BY updated_at
	// ORDER BY updated_at DESC
	// ORDER BY updated_at DESC, created_at ASC     => All will be DESC due to strom limitation
	for _, ob := range s.OrderBy {
		col, ok := ob.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, errors.New("unsupported order by expression")
		}
		if ob.Direction == sqlparser.DescScr {
			sc.OrderByReversed = true
		}
		sc.OrderBy = append(sc.OrderBy, FieldName(col.Name.String()))
	}

	return &sc, nil
}

// FieldName returns the struct field name of the given column.
func FieldName(column string) string {
	var name strings.Builder
	for _, part := range strings.Split(column, "_") {
		if part == "" {
			continue
		}

		switch strings.ToLower(part) {
		case "id", "uid", "url", "dob":
			name.WriteString(strings.ToUpper(part))
		case "ids":
			name.WriteString("IDs")
		default:
			name.WriteString(strings.ToUpper(part[:1]) + part[1:])
		}
	}
	return name.String()
}

func parseWhereExpr(expr sqlparser.Expr) (q.Matcher, error) {
	switch v := expr.(type) {
	//
	//
	//
	case *sqlparser.ComparisonExpr:
		col, ok := v.Left.(*sqlparser.ColName)
		if !ok {
			return nil, errors.New("left operand must be a column")
		}
		field := FieldName(col.Name.String())

		// Parse value
		var value any
		var err error
		switch sqlvalue := v.Right.(type) {
		case sqlparser.BoolVal:
			value = bool(sqlvalue)
		case sqlparser.ValTuple:
			var tuple []any
			for _, t := range sqlvalue {
				val, ok := t.(*sqlparser.SQLVal)
				if !ok {
					return nil, errors.New("unsupported tuple value")
				}
				v, err := parseSQLVal(val)
				if err != nil {
					return nil, err
				}
				tuple = append(tuple, v)
			}
			value = tuple
		case *sqlparser.SQLVal:
			if value, err = parseSQLVal(sqlvalue); err != nil {
				return nil, err
			}
		default:
			return nil, errors.Errorf("unsupported value: %s", sqlparser.String(v.Right))
		}

		// Parse operator
		switch v.Operator {
		case sqlparser.EqualStr:
			return q.Eq(field, value), nil
		case sqlparser.NotEqualStr:
			return q.Not(q.Eq(field, value)), nil
		case sqlparser.GreaterThanStr:
			return q.Gt(field, value), nil
		case sqlparser.GreaterEqualStr:
			return q.Gte(field, value), nil
		case sqlparser.InStr:
			return q.In(field, value), nil
		case sqlparser.NotInStr:
			return q.Not(q.In(field, value)), nil
		case sqlparser.LessThanStr:
			return q.Lt(field, value), nil
		case sqlparser.LessEqualStr:
			return q.Lte(field, value), nil
		case sqlparser.LikeStr:
			return q.Re(field, like(fmt.Sprintf("%v", value))), nil
		default:
			return nil, errors.Errorf("unsupported operator: %s", v.Operator)
		}
		//
		//
		//
	case *sqlparser.IsExpr:
		col, ok := v.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, errors.New("left operand must be a column")
		}
		field := FieldName(col.Name.String())

		switch v.Operator {
		case sqlparser.IsNullStr:
			return q.Eq(field, nil), nil
		case sqlparser.IsNotNullStr:
			return q.Not(q.Eq(field, nil)), nil
		case sqlparser.IsTrueStr:
			return q.Eq(field, true), nil
		case sqlparser.IsFalseStr:
			return q.Eq(field, false), nil
		default:
			return nil, errors.Errorf("unsupported operator: %s", v.Operator)
		}
		//
		//
		//
	case *sqlparser.AndExpr:
		left, err := parseWhereExpr(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := parseWhereExpr(v.Right)
		if err != nil {
			return nil, err
		}
		return q.And(left, right), nil
		//
		//
		//
	case *sqlparser.OrExpr:
		left, err := parseWhereExpr(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := parseWhereExpr(v.Right)
		if err != nil {
			return nil, err
		}
		return q.Or(left, right), nil
		//
		//
		//
	case *sqlparser.ParenExpr:
		return parseWhereExpr(v.Expr)
	default:
		return nil, errors.Errorf("unsupported where expression: %s", sqlparser.String(expr))
	}
}

func parseInt(expr sqlparser.Expr) (int, error) {
	val, ok := expr.(*sqlparser.SQLVal)
	if !ok || val.Type != sqlparser.IntVal {
		return 0, errors.Errorf("not an integer: %s", sqlparser.String(expr))
	}
	return strconv.Atoi(string(val.Val))
}

func parseSQLVal(v *sqlparser.SQLVal) (value any, err error) {
	switch v.Type {
	case sqlparser.StrVal:
		value = string(v.Val)

		// Try to convert to time.Time if possible
		if t, err := dateparse.ParseAny(string(v.Val)); err == nil {
			value = t.UTC()
		}
	case sqlparser.IntVal:
		value, err = strconv.Atoi(string(v.Val))
	case sqlparser.FloatVal:
		value, err = strconv.ParseFloat(string(v.Val), 64)
	case sqlparser.HexNum:
		value, err = strconv.ParseInt(string(v.Val[2:]), 16, 64)
	case sqlparser.HexVal:
		value, err = v.HexDecode()
	case sqlparser.BitVal:
		value = len(v.Val) > 0 && v.Val[0] == '1'
	default:
		err = errors.Errorf("unsupported value: %s", sqlparser.String(v))
	}
	return value, errors.Wrap(err, "could not parse value")
}

// like converts a SQL LIKE pattern into an anchored regexp.
func like(pattern string) string {
	var re strings.Builder
	re.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			re.WriteString(".*")
		case '_':
			re.WriteString(".")
		default:
			re.WriteString(regexpQuote(r))
		}
	}
	re.WriteString("$")
	return re.String()
}

func regexpQuote(r rune) string {
	if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
		return `\` + string(r)
	}
	return string(r)
}
