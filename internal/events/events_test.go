package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huellas/internal/models"
)

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (r *recordingConn) Publish(subject string, data []byte) error {
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, data)
	return r.err
}

func fixedPublisher(conn Conn) *Publisher {
	p := NewPublisher(conn)
	p.now = func() time.Time { return time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC) }
	return p
}

func TestPostCreated(t *testing.T) {
	conn := &recordingConn{}
	p := fixedPublisher(conn)

	post := &models.ReportedPost{PostBase: models.PostBase{ID: "abc", Status: models.StatusActive}}
	p.PostCreated(context.Background(), post)

	require.Equal(t, []string{SubjectPostCreated}, conn.subjects)
	var ev PostEvent
	require.NoError(t, json.Unmarshal(conn.payloads[0], &ev))
	assert.Equal(t, PostEvent{
		PostID:    "abc",
		Kind:      models.KindReported,
		Status:    models.StatusActive,
		Anonymous: true,
		Timestamp: "2026-02-01T09:30:00Z",
	}, ev)
}

func TestLifecycleSubjects(t *testing.T) {
	conn := &recordingConn{}
	p := fixedPublisher(conn)
	ctx := context.Background()

	p.PostStatusChanged(ctx, models.KindLost, "1", models.StatusResolved)
	p.PostSuspended(ctx, models.KindAdoption, "2", "spam")
	p.PostDeleted(ctx, models.KindClassified, "3")
	p.ReportFiled(ctx, &models.Report{ID: 7, PostID: "4", PostType: models.KindLost, Reason: models.ReasonFake})

	assert.Equal(t, []string{SubjectPostStatusChanged, SubjectPostSuspended, SubjectPostDeleted, SubjectReportFiled}, conn.subjects)

	var report ReportEvent
	require.NoError(t, json.Unmarshal(conn.payloads[3], &report))
	assert.Equal(t, uint(7), report.ReportID)
	assert.Equal(t, models.ReasonFake, report.Reason)
}

func TestPublishIsBestEffort(t *testing.T) {
	var nilPublisher *Publisher
	assert.NotPanics(t, func() { nilPublisher.PostDeleted(context.Background(), models.KindLost, "x") })
	assert.NotPanics(t, func() { NewPublisher(nil).PostDeleted(context.Background(), models.KindLost, "x") })

	conn := &recordingConn{err: errors.New("nats: connection closed")}
	assert.NotPanics(t, func() { fixedPublisher(conn).PostDeleted(context.Background(), models.KindLost, "x") })
	assert.Len(t, conn.subjects, 1)
}

func TestConnectWithoutURL(t *testing.T) {
	nc, err := Connect("")
	assert.NoError(t, err)
	assert.Nil(t, nc)
}
