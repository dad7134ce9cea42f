package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/jobnudge/internal/model"
)

// repoSet はバックエンドごとのリポジトリ実装の組。
type repoSet struct {
	profiles ProfileRepository
	ledger   LedgerRepository
	actions  ActionRepository
}

// runRepositoryContract は両バックエンド共通の振る舞いを検証する。
func runRepositoryContract(t *testing.T, newRepos func(t *testing.T) repoSet) {
	t.Run("Activate_CreatesProfile", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()

		p, err := r.profiles.Activate(ctx, "u1")
		if err != nil {
			t.Fatalf("Activate returned error: %v", err)
		}
		if !p.Active || p.UserID != "u1" || p.Skills != "" || p.LastQueryFingerprint != "" {
			t.Errorf("Activate = %+v, want new active profile", p)
		}
		if p.Location.IsSet() || p.ExpMin.IsSet() || p.ExpMax.IsSet() || p.WorkMode != model.WorkModeUnset {
			t.Errorf("new profile should have unset preferences: %+v", p)
		}
	})

	t.Run("Activate_IsIdempotentAndKeepsPreferences", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()

		mustActivate(t, r, "u1")
		prefs := model.Preferences{
			Skills:   "go, kubernetes",
			Location: model.Some("Pune"),
			ExpMin:   model.Some(3),
			ExpMax:   model.Some(6),
			WorkMode: model.WorkModeRemote,
		}
		if _, err := r.profiles.UpdatePreferences(ctx, "u1", fullPatch(prefs)); err != nil {
			t.Fatalf("UpdatePreferences returned error: %v", err)
		}
		if err := r.profiles.MarkNotified(ctx, "u1", "", "fp1"); err != nil {
			t.Fatalf("MarkNotified returned error: %v", err)
		}
		if err := r.profiles.Deactivate(ctx, "u1"); err != nil {
			t.Fatalf("Deactivate returned error: %v", err)
		}

		p, err := r.profiles.Activate(ctx, "u1")
		if err != nil {
			t.Fatalf("Activate returned error: %v", err)
		}
		if !p.Active {
			t.Error("expected profile to be active again")
		}
		if p.Skills != "go, kubernetes" || p.Location.OrElse("") != "Pune" || p.ExpMin.OrElse(-1) != 3 ||
			p.ExpMax.OrElse(-1) != 6 || p.WorkMode != model.WorkModeRemote {
			t.Errorf("preferences changed by Activate: %+v", p)
		}
		if p.LastQueryFingerprint != "fp1" {
			t.Errorf("LastQueryFingerprint = %q, want fp1", p.LastQueryFingerprint)
		}
	})

	t.Run("Deactivate_KeepsRowAndExcludesFromActive", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()

		mustActivate(t, r, "u1")
		mustActivate(t, r, "u2")
		if err := r.profiles.Deactivate(ctx, "u1"); err != nil {
			t.Fatalf("Deactivate returned error: %v", err)
		}

		p, err := r.profiles.FindByUserID(ctx, "u1")
		if err != nil {
			t.Fatalf("FindByUserID returned error: %v", err)
		}
		if p == nil || p.Active {
			t.Fatalf("FindByUserID = %+v, want inactive profile", p)
		}

		active, err := r.profiles.ListActive(ctx)
		if err != nil {
			t.Fatalf("ListActive returned error: %v", err)
		}
		if len(active) != 1 || active[0].UserID != "u2" {
			t.Errorf("ListActive = %v, want only u2", userIDs(active))
		}
	})

	t.Run("FindByUserID_Missing_ReturnsNil", func(t *testing.T) {
		r := newRepos(t)

		p, err := r.profiles.FindByUserID(context.Background(), "nobody")
		if err != nil {
			t.Fatalf("FindByUserID returned error: %v", err)
		}
		if p != nil {
			t.Errorf("FindByUserID = %+v, want nil", p)
		}
	})

	t.Run("Updates_MissingProfile_ReturnNotFound", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()

		if err := r.profiles.Deactivate(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Deactivate error = %v, want ErrNotFound", err)
		}
		if err := r.profiles.ResetFingerprint(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
			t.Errorf("ResetFingerprint error = %v, want ErrNotFound", err)
		}
	})

	t.Run("UpdatePreferences_MissingProfile_CreatesActive", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()

		p, err := r.profiles.UpdatePreferences(ctx, "u1", model.PreferencesPatch{
			Values:      model.Preferences{Location: model.Some("Pune")},
			SetLocation: true,
		})
		if err != nil {
			t.Fatalf("UpdatePreferences returned error: %v", err)
		}
		if !p.Active || p.UserID != "u1" || p.Location.OrElse("") != "Pune" {
			t.Errorf("UpdatePreferences = %+v, want new active profile in Pune", p)
		}
		if p.Skills != "" || p.ExpMin.IsSet() || p.ExpMax.IsSet() || p.WorkMode != model.WorkModeUnset || p.LastQueryFingerprint != "" {
			t.Errorf("unspecified fields should keep defaults: %+v", p)
		}
	})

	t.Run("UpdatePreferences_KeepsActiveFlagAndFingerprint", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()

		mustActivate(t, r, "u1")
		if err := r.profiles.MarkNotified(ctx, "u1", "", "fp1"); err != nil {
			t.Fatalf("MarkNotified returned error: %v", err)
		}
		if err := r.profiles.Deactivate(ctx, "u1"); err != nil {
			t.Fatalf("Deactivate returned error: %v", err)
		}

		p, err := r.profiles.UpdatePreferences(ctx, "u1", model.PreferencesPatch{
			Values: model.Preferences{Skills: "go"}, SetSkills: true,
		})
		if err != nil {
			t.Fatalf("UpdatePreferences returned error: %v", err)
		}
		if p.Active || p.LastQueryFingerprint != "fp1" || p.Skills != "go" {
			t.Errorf("UpdatePreferences = %+v, want inactive profile with fp1 and skills go", p)
		}
	})

	t.Run("UpdatePreferences_OnlyTouchesSpecifiedFields", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()

		mustActivate(t, r, "u1")
		if _, err := r.profiles.UpdatePreferences(ctx, "u1", fullPatch(model.Preferences{
			Skills: "go", Location: model.Some("Pune"), ExpMin: model.Some(2), ExpMax: model.Some(4), WorkMode: model.WorkModeHybrid,
		})); err != nil {
			t.Fatalf("UpdatePreferences returned error: %v", err)
		}
		if _, err := r.profiles.UpdatePreferences(ctx, "u1", model.PreferencesPatch{
			Values: model.Preferences{Skills: "rust"}, SetSkills: true, SetWorkMode: true,
		}); err != nil {
			t.Fatalf("UpdatePreferences returned error: %v", err)
		}

		p, err := r.profiles.FindByUserID(ctx, "u1")
		if err != nil {
			t.Fatalf("FindByUserID returned error: %v", err)
		}
		if p.Skills != "rust" || p.WorkMode != model.WorkModeUnset {
			t.Errorf("profile = %+v, want skills rust and work mode cleared", p)
		}
		if p.Location.OrElse("") != "Pune" || p.ExpMin.OrElse(-1) != 2 || p.ExpMax.OrElse(-1) != 4 {
			t.Errorf("profile = %+v, want location and experience kept", p)
		}
	})

	// 2人の呼び出し元がそれぞれ最新でない状態を元に別項目を更新しても、両方の変更が残る。
	t.Run("UpdatePreferences_InterleavedPartialUpdatesBothSurvive", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()

		mustActivate(t, r, "u1")
		skillsPatch := model.PreferencesPatch{Values: model.Preferences{Skills: "python"}, SetSkills: true}
		locationPatch := model.PreferencesPatch{Values: model.Preferences{Location: model.Some("Remote")}, SetLocation: true}

		if _, err := r.profiles.UpdatePreferences(ctx, "u1", locationPatch); err != nil {
			t.Fatalf("UpdatePreferences returned error: %v", err)
		}
		got, err := r.profiles.UpdatePreferences(ctx, "u1", skillsPatch)
		if err != nil {
			t.Fatalf("UpdatePreferences returned error: %v", err)
		}
		if got.Skills != "python" || got.Location.OrElse("") != "Remote" {
			t.Errorf("UpdatePreferences = %+v, want skills python and location Remote", got)
		}
	})

	t.Run("MarkNotified_ComparesExpectedFingerprint", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()

		mustActivate(t, r, "u1")
		if err := r.profiles.MarkNotified(ctx, "u1", "", "fp1"); err != nil {
			t.Fatalf("MarkNotified returned error: %v", err)
		}
		if err := r.profiles.MarkNotified(ctx, "u1", "", "fp2"); !errors.Is(err, ErrStaleFingerprint) {
			t.Errorf("MarkNotified with stale expected error = %v, want ErrStaleFingerprint", err)
		}

		p, _ := r.profiles.FindByUserID(ctx, "u1")
		if p.LastQueryFingerprint != "fp1" {
			t.Errorf("LastQueryFingerprint = %q, want fp1", p.LastQueryFingerprint)
		}

		if err := r.profiles.ResetFingerprint(ctx, "u1"); err != nil {
			t.Fatalf("ResetFingerprint returned error: %v", err)
		}
		p, _ = r.profiles.FindByUserID(ctx, "u1")
		if p.LastQueryFingerprint != "" {
			t.Errorf("LastQueryFingerprint after reset = %q, want empty", p.LastQueryFingerprint)
		}
	})

	t.Run("LedgerCreate_DuplicateKeepsOriginal", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()

		first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		if err := r.ledger.Create(ctx, &model.LedgerEntry{
			UserID: "u1", Company: "Acme", Role: "SRE", AppliedAt: first, FollowupAfterDays: 5,
		}); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}

		err := r.ledger.Create(ctx, &model.LedgerEntry{
			UserID: "u1", Company: "Acme", Role: "SRE", AppliedAt: first.Add(48 * time.Hour), FollowupAfterDays: 9,
		})
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("second Create error = %v, want ErrDuplicate", err)
		}

		e, err := r.ledger.FindByKey(ctx, "u1", "Acme", "SRE")
		if err != nil {
			t.Fatalf("FindByKey returned error: %v", err)
		}
		if !e.AppliedAt.Equal(first) || e.FollowupAfterDays != 5 {
			t.Errorf("entry = %+v, want original applied_at and days", e)
		}
	})

	t.Run("LedgerCreate_SameCompanyDifferentRole", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()
		now := time.Now().UTC()

		for _, role := range []string{"SRE", "Platform Engineer"} {
			if err := r.ledger.Create(ctx, &model.LedgerEntry{
				UserID: "u1", Company: "Acme", Role: role, AppliedAt: now, FollowupAfterDays: 5,
			}); err != nil {
				t.Fatalf("Create(%s) returned error: %v", role, err)
			}
		}

		entries, err := r.ledger.ListByUserID(ctx, "u1")
		if err != nil {
			t.Fatalf("ListByUserID returned error: %v", err)
		}
		if len(entries) != 2 {
			t.Errorf("len(entries) = %d, want 2", len(entries))
		}
	})

	t.Run("Ledger_LinkRoundTrips", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()

		if err := r.ledger.Create(ctx, &model.LedgerEntry{
			UserID: "u1", Company: "Acme", Role: "SRE", AppliedAt: time.Now(), FollowupAfterDays: 5,
			Link: model.Some("https://jobs.example.com/123"),
		}); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		e, err := r.ledger.FindByKey(ctx, "u1", "Acme", "SRE")
		if err != nil {
			t.Fatalf("FindByKey returned error: %v", err)
		}
		if link, ok := e.Link.Get(); !ok || link != "https://jobs.example.com/123" {
			t.Errorf("Link = %v, want stored link", e.Link)
		}
	})

	t.Run("Ledger_ListByUserID_OrderedByAppliedAt", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

		mustCreateEntry(t, r, "u1", "Later", base.Add(2*time.Hour))
		mustCreateEntry(t, r, "u1", "Earlier", base)
		mustCreateEntry(t, r, "u2", "Other", base)

		entries, err := r.ledger.ListByUserID(ctx, "u1")
		if err != nil {
			t.Fatalf("ListByUserID returned error: %v", err)
		}
		if len(entries) != 2 || entries[0].Company != "Earlier" || entries[1].Company != "Later" {
			t.Errorf("ListByUserID = %v, want [Earlier Later]", companies(entries))
		}
	})

	t.Run("Ledger_ListForActiveProfiles_ExcludesInactive", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()
		now := time.Now().UTC()

		mustActivate(t, r, "active")
		mustActivate(t, r, "inactive")
		if err := r.profiles.Deactivate(ctx, "inactive"); err != nil {
			t.Fatalf("Deactivate returned error: %v", err)
		}
		mustCreateEntry(t, r, "active", "Acme", now)
		mustCreateEntry(t, r, "inactive", "Globex", now)
		mustCreateEntry(t, r, "no-profile", "Initech", now)

		entries, err := r.ledger.ListForActiveProfiles(ctx)
		if err != nil {
			t.Fatalf("ListForActiveProfiles returned error: %v", err)
		}
		if len(entries) != 1 || entries[0].UserID != "active" {
			t.Errorf("ListForActiveProfiles = %v, want only active user's entry", companies(entries))
		}
	})

	t.Run("Ledger_UpdateAndDelete", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()

		mustCreateEntry(t, r, "u1", "Acme", time.Now())
		if err := r.ledger.UpdateFollowupDays(ctx, "u1", "Acme", "SRE", 10); err != nil {
			t.Fatalf("UpdateFollowupDays returned error: %v", err)
		}
		e, _ := r.ledger.FindByKey(ctx, "u1", "Acme", "SRE")
		if e.FollowupAfterDays != 10 {
			t.Errorf("FollowupAfterDays = %d, want 10", e.FollowupAfterDays)
		}

		if err := r.ledger.UpdateFollowupDays(ctx, "u1", "Nope", "SRE", 10); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateFollowupDays missing error = %v, want ErrNotFound", err)
		}
		if err := r.ledger.Delete(ctx, "u1", "Acme", "SRE"); err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}
		if err := r.ledger.Delete(ctx, "u1", "Acme", "SRE"); !errors.Is(err, ErrNotFound) {
			t.Errorf("second Delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Ledger_DeleteByUserID", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()
		now := time.Now()

		mustCreateEntry(t, r, "u1", "Acme", now)
		mustCreateEntry(t, r, "u1", "Globex", now)
		mustCreateEntry(t, r, "u2", "Acme", now)

		n, err := r.ledger.DeleteByUserID(ctx, "u1")
		if err != nil {
			t.Fatalf("DeleteByUserID returned error: %v", err)
		}
		if n != 2 {
			t.Errorf("deleted = %d, want 2", n)
		}
		rest, _ := r.ledger.ListByUserID(ctx, "u2")
		if len(rest) != 1 {
			t.Errorf("u2 entries = %d, want 1", len(rest))
		}
	})

	t.Run("Actions_CountSince", func(t *testing.T) {
		r := newRepos(t)
		ctx := context.Background()
		now := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)
		since := now.AddDate(0, 0, -7)

		for _, a := range []model.JobAction{
			{UserID: "u1", Company: "Acme", Role: "SRE", Action: model.ActionApply, ActionAt: now.Add(-time.Hour)},
			{UserID: "u1", Company: "Globex", Role: "SRE", Action: model.ActionApply, ActionAt: now.AddDate(0, 0, -2)},
			{UserID: "u1", Company: "Initech", Role: "SRE", Action: model.ActionIgnore, ActionAt: now.AddDate(0, 0, -3)},
			{UserID: "u1", Company: "Old", Role: "SRE", Action: model.ActionApply, ActionAt: now.AddDate(0, 0, -8)},
			{UserID: "u2", Company: "Acme", Role: "SRE", Action: model.ActionFollow, ActionAt: now.Add(-time.Minute)},
		} {
			a := a
			if err := r.actions.Create(ctx, &a); err != nil {
				t.Fatalf("Create returned error: %v", err)
			}
			if a.ID == "" {
				t.Error("Create should assign an ID")
			}
		}

		counts, err := r.actions.CountSince(ctx, since)
		if err != nil {
			t.Fatalf("CountSince returned error: %v", err)
		}
		want := []model.ActionCount{
			{UserID: "u1", Action: model.ActionApply, Count: 2},
			{UserID: "u1", Action: model.ActionIgnore, Count: 1},
			{UserID: "u2", Action: model.ActionFollow, Count: 1},
		}
		if len(counts) != len(want) {
			t.Fatalf("CountSince = %+v, want %+v", counts, want)
		}
		for i := range want {
			if counts[i] != want[i] {
				t.Errorf("counts[%d] = %+v, want %+v", i, counts[i], want[i])
			}
		}

		// 8日前の1件だけが保持期間外
		deleted, err := r.actions.DeleteBefore(ctx, since)
		if err != nil {
			t.Fatalf("DeleteBefore returned error: %v", err)
		}
		if deleted != 1 {
			t.Errorf("DeleteBefore deleted %d, want 1", deleted)
		}
		deleted, err = r.actions.DeleteBefore(ctx, since)
		if err != nil || deleted != 0 {
			t.Errorf("second DeleteBefore = (%d, %v), want (0, nil)", deleted, err)
		}
	})
}

func mustActivate(t *testing.T, r repoSet, userID string) {
	t.Helper()
	if _, err := r.profiles.Activate(context.Background(), userID); err != nil {
		t.Fatalf("Activate(%s) returned error: %v", userID, err)
	}
}

func mustCreateEntry(t *testing.T, r repoSet, userID, company string, appliedAt time.Time) {
	t.Helper()
	if err := r.ledger.Create(context.Background(), &model.LedgerEntry{
		UserID: userID, Company: company, Role: "SRE", AppliedAt: appliedAt, FollowupAfterDays: model.DefaultFollowupAfterDays,
	}); err != nil {
		t.Fatalf("Create(%s/%s) returned error: %v", userID, company, err)
	}
}

func userIDs(profiles []*model.Profile) []string {
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.UserID)
	}
	return ids
}

func companies(entries []*model.LedgerEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Company)
	}
	return names
}

// fullPatch はすべての項目を書き換えるパッチを返す。
func fullPatch(prefs model.Preferences) model.PreferencesPatch {
	return model.PreferencesPatch{
		Values:        prefs,
		SetSkills:     true,
		SetLocation:   true,
		SetExperience: true,
		SetWorkMode:   true,
	}
}
