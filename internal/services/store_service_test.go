package services

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/database/models"
	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/parser"
)

func setupStoreTestDB(t *testing.T) (*gorm.DB, func()) {
	tmpFile, err := os.CreateTemp("", "store_test_*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpFile.Close()

	db, err := gorm.Open(sqlite.Open(tmpFile.Name()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("Failed to open database: %v", err)
	}

	if err := db.AutoMigrate(&models.Email{}, &models.Log{}); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("Failed to migrate: %v", err)
	}

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		os.Remove(tmpFile.Name())
	}

	return db, cleanup
}

func newTestStore(t *testing.T) (*StoreService, func()) {
	db, cleanup := setupStoreTestDB(t)
	return NewStoreService(db, NewLogService(db)), cleanup
}

func sampleMessage(id, accountID, messageID string) *parser.NormalizedMessage {
	return &parser.NormalizedMessage{
		ID:        id,
		AccountID: accountID,
		Folder:    models.FolderInbox,
		Subject:   "Re: Intro",
		Body:      "sounds good",
		From:      "alex@example.com",
		To:        []string{"sales@ours.io"},
		Date:      time.Date(2025, 8, 4, 12, 0, 0, 0, time.UTC),
		MessageID: messageID,
		Category:  models.CategoryUncategorized,
	}
}

func TestStore_IndexAndGet(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	email, created, err := store.Index(sampleMessage("uid-1", "acc-1", "<m1@x>"))
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if !created {
		t.Error("expected a new row")
	}
	if email.Category != models.CategoryUncategorized {
		t.Errorf("unexpected category %q", email.Category)
	}

	got, err := store.GetByUID("uid-1")
	if err != nil {
		t.Fatalf("GetByUID failed: %v", err)
	}
	if got.Subject != "Re: Intro" || got.AccountID != "acc-1" {
		t.Errorf("unexpected row %+v", got)
	}
	if got.ToAddrs != `["sales@ours.io"]` {
		t.Errorf("unexpected to addrs %q", got.ToAddrs)
	}
}

func TestStore_IndexDeduplicatesByMessageID(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	first, created, err := store.Index(sampleMessage("uid-1", "acc-1", "<m1@x>"))
	if err != nil || !created {
		t.Fatalf("first index: created=%t err=%v", created, err)
	}

	// Same protocol message fetched again gets a fresh generated id
	second, created, err := store.Index(sampleMessage("uid-2", "acc-1", "<m1@x>"))
	if err != nil {
		t.Fatalf("second index failed: %v", err)
	}
	if created {
		t.Error("re-delivery created a second row")
	}
	if second.UID != first.UID {
		t.Errorf("expected stored row %q, got %q", first.UID, second.UID)
	}

	// Same message id on another account is a different message
	_, created, err = store.Index(sampleMessage("uid-3", "acc-2", "<m1@x>"))
	if err != nil || !created {
		t.Errorf("cross-account index: created=%t err=%v", created, err)
	}
}

func TestStore_IndexConcurrentDeliveriesStoreOneRow(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	// Several pipeline workers can receive re-deliveries of the same
	// protocol message at once. The unique index on account and message
	// id keeps exactly one row no matter how the inserts interleave.
	const workers = 4
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		createdN int
		errs     []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, created, err := store.Index(sampleMessage(fmt.Sprintf("uid-%d", n), "acc-1", "<m1@x>"))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			} else if created {
				createdN++
			}
		}(i)
	}
	wg.Wait()

	if len(errs) != 0 {
		t.Fatalf("concurrent index errors: %v", errs)
	}
	if createdN != 1 {
		t.Errorf("expected exactly one insert to win, got %d", createdN)
	}

	count, err := store.CountByAccount("acc-1")
	if err != nil {
		t.Fatalf("CountByAccount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestStore_IndexEmptyMessageIDNeverDeduplicates(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	for i := 0; i < 3; i++ {
		_, created, err := store.Index(sampleMessage(fmt.Sprintf("uid-%d", i), "acc-1", ""))
		if err != nil || !created {
			t.Fatalf("index %d: created=%t err=%v", i, created, err)
		}
	}

	count, err := store.CountByAccount("acc-1")
	if err != nil {
		t.Fatalf("CountByAccount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 rows, got %d", count)
	}
}

func TestStore_ListFilters(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	m1 := sampleMessage("uid-1", "acc-1", "<m1@x>")
	m1.Subject = "Pricing question"
	m2 := sampleMessage("uid-2", "acc-2", "<m2@x>")
	m2.Subject = "Out of office"
	for _, m := range []*parser.NormalizedMessage{m1, m2} {
		if _, _, err := store.Index(m); err != nil {
			t.Fatalf("Index failed: %v", err)
		}
	}
	if err := store.SetCategory("uid-2", models.CategoryOutOfOffice, "local"); err != nil {
		t.Fatalf("SetCategory failed: %v", err)
	}

	emails, total, err := store.List(EmailQuery{AccountID: "acc-1"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(emails) != 1 || emails[0].UID != "uid-1" {
		t.Errorf("account filter: total=%d emails=%v", total, emails)
	}

	emails, total, err = store.List(EmailQuery{Category: models.CategoryOutOfOffice})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || emails[0].UID != "uid-2" {
		t.Errorf("category filter: total=%d", total)
	}

	_, total, err = store.List(EmailQuery{Search: "pricing"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 {
		t.Errorf("search filter: total=%d", total)
	}
}

func TestStore_ListPagination(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	for i := 0; i < 5; i++ {
		m := sampleMessage(fmt.Sprintf("uid-%d", i), "acc-1", fmt.Sprintf("<m%d@x>", i))
		m.Date = m.Date.Add(time.Duration(i) * time.Hour)
		if _, _, err := store.Index(m); err != nil {
			t.Fatalf("Index failed: %v", err)
		}
	}

	emails, total, err := store.List(EmailQuery{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 5 || len(emails) != 2 {
		t.Fatalf("page 1: total=%d len=%d", total, len(emails))
	}
	// Newest first
	if emails[0].UID != "uid-4" {
		t.Errorf("expected newest first, got %q", emails[0].UID)
	}

	emails, _, err = store.List(EmailQuery{Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(emails) != 1 || emails[0].UID != "uid-0" {
		t.Errorf("page 3: %v", emails)
	}
}

func TestStore_UpdateCategory(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	if _, _, err := store.Index(sampleMessage("uid-1", "acc-1", "<m1@x>")); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	email, err := store.UpdateCategory("uid-1", models.CategoryInterested)
	if err != nil {
		t.Fatalf("UpdateCategory failed: %v", err)
	}
	if email.Category != models.CategoryInterested {
		t.Errorf("unexpected category %q", email.Category)
	}

	if _, err := store.UpdateCategory("uid-1", "Lukewarm"); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("expected ErrInvalidCategory, got %v", err)
	}
	if _, err := store.UpdateCategory("missing", models.CategorySpam); !errors.Is(err, ErrEmailNotFound) {
		t.Errorf("expected ErrEmailNotFound, got %v", err)
	}
}

func TestStore_Stats(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	for i := 0; i < 3; i++ {
		m := sampleMessage(fmt.Sprintf("uid-%d", i), "acc-1", fmt.Sprintf("<m%d@x>", i))
		if _, _, err := store.Index(m); err != nil {
			t.Fatalf("Index failed: %v", err)
		}
	}
	store.SetCategory("uid-0", models.CategoryInterested, "ai")
	store.SetCategory("uid-1", models.CategoryInterested, "ai")

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("unexpected total %d", stats.Total)
	}

	byCategory := make(map[string]int64)
	for _, cc := range stats.ByCategory {
		byCategory[cc.Category] = cc.Count
	}
	if byCategory[models.CategoryInterested] != 2 || byCategory[models.CategoryUncategorized] != 1 {
		t.Errorf("unexpected category counts %v", byCategory)
	}
	if stats.LastIndexed.IsZero() {
		t.Error("expected last indexed timestamp")
	}
}

func TestProperty_Store_RedeliveryIdempotence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	// Fetching the same mailbox message any number of times leaves exactly
	// one stored row, keyed by account and message id
	properties.Property("repeated delivery stores one row", prop.ForAll(
		func(messageID string, deliveries int) bool {
			store, cleanup := newTestStore(t)
			defer cleanup()

			protocolID := "<" + messageID + "@example.com>"
			for i := 0; i < deliveries; i++ {
				m := sampleMessage(fmt.Sprintf("uid-%d", i), "acc-1", protocolID)
				if _, _, err := store.Index(m); err != nil {
					return false
				}
			}

			count, err := store.CountByAccount("acc-1")
			return err == nil && count == 1
		},
		gen.Identifier(),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
