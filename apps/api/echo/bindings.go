package echoapi

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field,-other` (a leading "-" sorts descending).
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// idParam returns the :id path param; malformed ids are not found.
func idParam(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errHTTPNotFound
	}
	return id, nil
}

// queryIDs reads the repeated `?id=` query param used by bulk deletes.
func queryIDs(ctx echo.Context) ([]int, error) {
	raw := ctx.QueryParams()["id"]
	ids := make([]int, 0, len(raw))
	for _, s := range raw {
		for _, part := range strings.Split(s, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, core.NewValidationError(nil, core.FieldError{Field: "id", Error: "invalid id: " + part})
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func queryInt(ctx echo.Context, name string) (*int, error) {
	s := ctx.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a number"})
	}
	return &v, nil
}

func queryBool(ctx echo.Context, name string) (*bool, error) {
	s := ctx.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a boolean"})
	}
	return &v, nil
}

func queryDate(ctx echo.Context, name string) (*core.Date, error) {
	s := ctx.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a date (YYYY-MM-DD)"})
	}
	return &d, nil
}

type (
	IDsRequest struct {
		IDs []int `json:"ids"`
	}

	DeletedResponse struct {
		Deleted int `json:"deleted"`
	}
)

// nonNil turns nil slices into empty ones so lists encode as [].
func nonNil(list interface{}) interface{} {
	v := reflect.ValueOf(list)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return list
}

// deleted writes the result of a bulk delete.
func (s *Server) deleted(ctx echo.Context) func(int, error) error {
	return func(n int, err error) error {
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, DeletedResponse{Deleted: n})
	}
}
