package services

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharide/internal/config"
	"sharide/internal/directory"
	"sharide/internal/domain/entities"
	"sharide/internal/repository"
	"sharide/internal/repository/memory"
	"sharide/internal/repository/storetest"
)

func seedDirectory(t *testing.T, store repository.DocumentStore) {
	t.Helper()
	ctx := context.Background()

	users := []entities.User{
		{FirebaseUserID: "fb-1", Name: "ALI BIN ABU", Email: "ali@graduate.utm.my", ICNumber: "990101015555", StudentID: "21SEC0042", Status: entities.StatusActive},
		{FirebaseUserID: "fb-2", Name: "SITI AMINAH", Email: "Siti@utm.my", ICNumber: "980202026666", StudentID: "20SCJ0100", Status: entities.StatusPending},
		{FirebaseUserID: "fb-3", Name: "TAN AH KOW", Email: "tan@graduate.utm.my", ICNumber: "970303037777", StudentID: "19SEC0007", Status: entities.StatusActive},
	}
	for _, u := range users {
		require.NoError(t, store.Set(ctx, repository.CollectionUsers, u.FirebaseUserID, u.Fields()))
	}

	driver := entities.Driver{DrivingID: "880808088888", FirebaseUserID: "fb-1", Name: "ALI BIN ABU", CarPlate: "JHB1234", Status: entities.StatusActive}
	require.NoError(t, store.Set(ctx, repository.CollectionDrivers, driver.DrivingID, driver.Fields()))

	admin := entities.Admin{AdminID: "adm-1", Name: "ADMIN ONE", StaffID: "11ST001", GroupID: "grp-1", Status: entities.StatusActive}
	require.NoError(t, store.Set(ctx, repository.CollectionAdmins, admin.AdminID, admin.Fields()))
	orphan := entities.Admin{AdminID: "adm-2", Name: "ADMIN TWO"}
	require.NoError(t, store.Set(ctx, repository.CollectionAdmins, orphan.AdminID, orphan.Fields()))

	group := entities.AdminGroup{GroupID: "grp-1", GroupName: "KOLEJ TUN DR ISMAIL", AdminIDs: []string{"adm-1"}, MemberIDs: []string{"fb-3", "missing", "fb-1"}, Status: entities.StatusActive}
	require.NoError(t, store.Set(ctx, repository.CollectionAdminGroups, group.GroupID, group.Fields()))
}

func setupDirectoryService(t *testing.T, store repository.DocumentStore) *DirectoryService {
	t.Helper()
	if store == nil {
		store = memory.NewDocumentStore()
	}
	seedDirectory(t, store)
	return NewDirectoryService(store, nil, config.NewDefaultConfig(), quietLogger())
}

func ids(docs []repository.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID()
	}
	return out
}

func TestDirectoryService_Search(t *testing.T) {
	service := setupDirectoryService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name       string
		collection string
		query      string
		wantRule   directory.Rule
		wantField  string
		wantIDs    []string
	}{
		{"name lower-case", repository.CollectionUsers, "ali bin abu", directory.RuleName, "name", []string{"fb-1"}},
		{"ic number", repository.CollectionUsers, "980202026666", directory.RuleNumericID, "icNumber", []string{"fb-2"}},
		{"email verbatim", repository.CollectionUsers, "Siti@utm.my", directory.RuleEmail, "email", []string{"fb-2"}},
		{"email case matters", repository.CollectionUsers, "siti@utm.my", directory.RuleEmail, "email", []string{}},
		{"student id", repository.CollectionUsers, "21sec0042", directory.RuleShortID, "studentId", []string{"fb-1"}},
		{"status default", repository.CollectionUsers, "active", directory.RuleDefault, "status", []string{"fb-1", "fb-3"}},
		{"driver plate", repository.CollectionDrivers, "jhb1234", directory.RulePlate, "carPlate", []string{"880808088888"}},
		{"driving id", repository.CollectionDrivers, "880808088888", directory.RuleNumericID, "drivingId", []string{"880808088888"}},
		{"group name", repository.CollectionAdminGroups, "Kolej Tun Dr Ismail", directory.RuleName, "groupName", []string{"grp-1"}},
		{"no match", repository.CollectionUsers, "nobody here", directory.RuleName, "name", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := service.Search(ctx, tt.collection, tt.query)
			require.NoError(t, res.Err)
			assert.Equal(t, tt.wantRule, res.Rule)
			assert.Equal(t, tt.wantField, res.Field)
			if diff := cmp.Diff(tt.wantIDs, ids(res.Records)); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDirectoryService_BlankQuerySkipsStore(t *testing.T) {
	failing := storetest.NewFailingStore(memory.NewDocumentStore())
	service := setupDirectoryService(t, failing)

	res := service.Search(context.Background(), repository.CollectionUsers, "   ")
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Records)
	assert.NotNil(t, res.Records)
	assert.Equal(t, 0, failing.Calls("Query"))
}

func TestDirectoryService_StoreFailureIsDistinguishable(t *testing.T) {
	failing := storetest.NewFailingStore(memory.NewDocumentStore())
	service := setupDirectoryService(t, failing)
	failing.SetFailing("Query", true)

	res := service.Search(context.Background(), repository.CollectionUsers, "ali bin abu")
	assert.ErrorIs(t, res.Err, repository.ErrStoreUnavailable)
	assert.Empty(t, res.Records)
	assert.Equal(t, directory.RuleName, res.Rule)
}

func TestDirectoryService_UnknownCollection(t *testing.T) {
	service := setupDirectoryService(t, nil)
	ctx := context.Background()

	res := service.Search(ctx, "Ratings", "u1")
	assert.ErrorIs(t, res.Err, ErrUnknownCollection)

	_, err := service.Get(ctx, "payments", "x")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestDirectoryService_GetAndUpdate(t *testing.T) {
	service := setupDirectoryService(t, nil)
	ctx := context.Background()

	_, err := service.Get(ctx, repository.CollectionUsers, "nope")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	updated, err := service.Update(ctx, repository.CollectionUsers, "fb-2", repository.Document{"status": "ACTIVE", "phone": "0123456789"})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", updated.String("status"))
	assert.Equal(t, "0123456789", updated.String("phone"))
	assert.Equal(t, "SITI AMINAH", updated.String("name"))

	_, err = service.Update(ctx, repository.CollectionUsers, "fb-2", repository.Document{"firebaseUserId": "other"})
	assert.ErrorIs(t, err, ErrImmutableField)
	_, err = service.Update(ctx, repository.CollectionUsers, "fb-2", repository.Document{"id": "other"})
	assert.ErrorIs(t, err, ErrImmutableField)
	_, err = service.Update(ctx, repository.CollectionUsers, "fb-2", repository.Document{"bad field": 1})
	assert.ErrorIs(t, err, repository.ErrInvalidField)
	_, err = service.Update(ctx, repository.CollectionUsers, "fb-2", nil)
	assert.ErrorIs(t, err, ErrEmptyUpdate)
	_, err = service.Update(ctx, repository.CollectionUsers, "ghost", repository.Document{"status": "ACTIVE"})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestDirectoryService_GroupForAdmin(t *testing.T) {
	service := setupDirectoryService(t, nil)
	ctx := context.Background()

	group, err := service.GroupForAdmin(ctx, "adm-1")
	require.NoError(t, err)
	assert.Equal(t, "grp-1", group.GroupID)
	assert.Equal(t, "KOLEJ TUN DR ISMAIL", group.GroupName)

	_, err = service.GroupForAdmin(ctx, "adm-2")
	assert.ErrorIs(t, err, ErrGroupNotFound)

	_, err = service.GroupForAdmin(ctx, "adm-404")
	assert.ErrorIs(t, err, ErrAdminNotFound)
}

func TestDirectoryService_MembersOfGroup(t *testing.T) {
	service := setupDirectoryService(t, nil)
	ctx := context.Background()

	members, err := service.MembersOfGroup(ctx, "grp-1")
	require.NoError(t, err)

	got := make([]string, len(members))
	for i, m := range members {
		got[i] = m.FirebaseUserID
	}
	if diff := cmp.Diff([]string{"fb-3", "fb-1"}, got); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}

	_, err = service.MembersOfGroup(ctx, "grp-404")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestDirectoryService_MembersOfGroupStoreFailure(t *testing.T) {
	failing := storetest.NewFailingStore(memory.NewDocumentStore())
	service := setupDirectoryService(t, failing)
	failing.SetFailing("Get", true)

	_, err := service.MembersOfGroup(context.Background(), "grp-1")
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
}
