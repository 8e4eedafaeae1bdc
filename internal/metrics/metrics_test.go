package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/titles/", "200"))
	RecordAPIRequest("GET", "/api/v1/titles/", 200, 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/titles/", "200"))
	assert.Equal(t, before+1, after)
}

func TestRecordMail(t *testing.T) {
	okBefore := testutil.ToFloat64(MailPublished.WithLabelValues("log", "ok"))
	errBefore := testutil.ToFloat64(MailPublished.WithLabelValues("log", "error"))

	RecordMail("log", nil)
	RecordMail("log", errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(MailPublished.WithLabelValues("log", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(MailPublished.WithLabelValues("log", "error")))
}
