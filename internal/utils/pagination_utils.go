// package utils provides utility functions to support various operations within the application.
package utils

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/verso-cms/server-verso/internal/schemas"
)

var errRecordsNotSlice = errors.New("records not a valid list")

// ParsePaginationParams extracts the 'offset' and 'limit' parameters from the request's query parameters.
// It provides default values and ensures that the returned values are non-negative.
func ParsePaginationParams(ctx *gin.Context) (int, int) {
	offset, err := strconv.Atoi(ctx.DefaultQuery(OffsetParamKey, "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	limit, err := strconv.Atoi(ctx.DefaultQuery(LimitParamKey, "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	return offset, limit
}

// SendPaginatedResponse sends a paginated HTTP response with the subset of records determined by the offset and limit.
// It handles the slicing of records and constructs a response structure that includes pagination details.
func SendPaginatedResponse(ctx *gin.Context, records interface{}, offset, limit, totalRecords int) {
	v := reflect.ValueOf(records)
	if v.Kind() != reflect.Slice {
		WriteAndLogError(ctx, schemas.InternalServerError, http.StatusInternalServerError,
			errRecordsNotSlice)
		return
	}

	if offset > v.Len() {
		offset = v.Len()
	}

	end := offset + limit
	if end > v.Len() {
		end = v.Len()
	}

	subset := records
	if v.Len() > 0 {
		subset = v.Slice(offset, end).Interface()
	}

	paginatedResponse := schemas.PaginatedResponse{
		Records: subset,
		Pagination: schemas.Pagination{
			Offset:  offset,
			Limit:   limit,
			Records: totalRecords,
		},
	}

	WriteAndLogResponse(ctx, paginatedResponse, http.StatusOK)
}
