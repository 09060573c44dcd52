package echoapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/training"
	"github.com/trezcool/academia/core/website"
)

func Test_trainingApi(t *testing.T) {
	app := newTestApp(t)
	token := getToken(t, app, app.staff)

	createTopic := func(title string) training.Topic {
		t.Helper()
		rec := app.do(newAuthRequest(http.MethodPost, "/admin/trainings/topic", token, marshalObj(t, training.TopicInput{Title: title})))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var topic training.Topic
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &topic))
		return topic
	}
	strs, graphs := createTopic("Strings"), createTopic("Graphs")

	rec := app.do(newAuthRequest(http.MethodPost, "/admin/trainings/topic/reorder", token,
		marshalObj(t, IDsRequest{IDs: []int{graphs.ID, strs.ID}})))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var topics []training.Topic
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &topics))
	require.Len(t, topics, 2)
	assert.Equal(t, "1. Graphs", topics[0].String())
	assert.Equal(t, "2. Strings", topics[1].String())

	in := training.TaskInput{TopicID: &graphs.ID, Title: "Dijkstra", Description: "Shortest paths", AuthorIDs: []int{app.staff.ID}}
	rec = app.do(newAuthRequest(http.MethodPost, "/admin/trainings/task", token, marshalObj(t, in)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task training.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, []int{app.staff.ID}, task.AuthorIDs)
	taskPath := "/admin/trainings/task/" + strconv.Itoa(task.ID)

	missing := 404
	app.run(t, []httpTest{
		{name: "reorder (empty)", method: http.MethodPost, path: "/admin/trainings/topic/reorder", token: token,
			body: []byte(`{"ids": []}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"ids": "this field is required"})},
		{name: "reorder (unknown)", method: http.MethodPost, path: "/admin/trainings/topic/reorder", token: token,
			body: []byte(`{"ids": [404]}`), wantCode: http.StatusNotFound},
		{name: "topic search", path: "/admin/trainings/topic?search=graph", token: token, wantData: marshalList(t, topics[0])},
		{name: "task (unknown topic)", method: http.MethodPost, path: "/admin/trainings/task", token: token,
			body: marshalObj(t, training.TaskInput{TopicID: &missing, Title: "x", Description: "y"}), wantCode: http.StatusBadRequest},
		{name: "tasks by topic", path: "/admin/trainings/task?topic_id=" + strconv.Itoa(graphs.ID), token: token, wantData: marshalList(t, task)},
		{name: "tasks by other topic", path: "/admin/trainings/task?topic_id=" + strconv.Itoa(strs.ID), token: token, wantData: marshalList(t)},
		{name: "standard test (none)", path: taskPath + "/standardtest", token: token, wantCode: http.StatusNotFound},
		{name: "standard test (invalid)", method: http.MethodPut, path: taskPath + "/standardtest", token: token,
			body: []byte(`{"input_data": "1 2"}`), wantCode: http.StatusBadRequest},
		{name: "standard test", method: http.MethodPut, path: taskPath + "/standardtest", token: token,
			body: marshalObj(t, training.StandardTestInput{InputData: "1 2", OutputData: "3"})},
		{name: "standard test (saved)", path: taskPath + "/standardtest", token: token},
		{name: "delete standard test", method: http.MethodDelete, path: taskPath + "/standardtest", token: token, wantCode: http.StatusNoContent},
		{name: "task history", path: taskPath + "/history", token: token},
		{name: "delete topic", method: http.MethodDelete, path: "/admin/trainings/topic/" + strconv.Itoa(graphs.ID), token: token,
			wantData: marshalObj(t, DeletedResponse{Deleted: 1})},
	})

	rec = app.do(newAuthRequest(http.MethodGet, taskPath, token))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.False(t, task.TopicID.Valid)
}

func Test_websiteApi(t *testing.T) {
	app := newTestApp(t)
	token := getToken(t, app, app.staff)

	createMember := func(userID int) website.HallOfFameMember {
		t.Helper()
		rec := app.do(newAuthRequest(http.MethodPost, "/admin/website/halloffamemember", token,
			marshalObj(t, website.HallOfFameMemberInput{UserID: userID, Achievement: "IOI medal"})))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var m website.HallOfFameMember
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
		return m
	}
	m1, m2 := createMember(app.root.ID), createMember(app.staff.ID)
	assert.Equal(t, app.root.FullName(), m1.FullName)

	rec := app.do(newAuthRequest(http.MethodPost, "/admin/website/halloffamemember/reorder", token,
		marshalObj(t, IDsRequest{IDs: []int{m2.ID, m1.ID}})))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var members []website.HallOfFameMember
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &members))
	require.Len(t, members, 2)
	assert.Equal(t, []int{m2.ID, m1.ID}, []int{members[0].ID, members[1].ID})
	assert.Equal(t, []int{1, 2}, []int{members[0].Order, members[1].Order})

	app.run(t, []httpTest{
		{name: "member (user taken)", method: http.MethodPost, path: "/admin/website/halloffamemember", token: token,
			body: marshalObj(t, website.HallOfFameMemberInput{UserID: app.root.ID, Achievement: "again"}), wantCode: http.StatusBadRequest},
		{name: "member (unknown user)", method: http.MethodPost, path: "/admin/website/halloffamemember", token: token,
			body: marshalObj(t, website.HallOfFameMemberInput{UserID: 404, Achievement: "ghost"}), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"user_id": "user does not exist"})},
		{name: "contributor", method: http.MethodPost, path: "/admin/website/contributor", token: token,
			body:     marshalObj(t, website.ContributorInput{UserID: app.staff.ID, Contribution: "Frontend", URL: "https://example.com"}),
			wantCode: http.StatusCreated},
		{name: "contributor (bad url)", method: http.MethodPost, path: "/admin/website/contributor", token: token,
			body:     marshalObj(t, website.ContributorInput{UserID: app.root.ID, Contribution: "Backend", URL: "nope"}),
			wantCode: http.StatusBadRequest},
		{name: "delete member", method: http.MethodDelete, path: "/admin/website/halloffamemember/" + strconv.Itoa(m1.ID), token: token,
			wantData: marshalObj(t, DeletedResponse{Deleted: 1})},
	})
}
