package services

import (
	"context"
	"errors"
	"fmt"

	"finanz/internal/core"
	"finanz/internal/log"
	"finanz/internal/storage"
)

// FamilyService owns the family workspace: creation, membership admission,
// removal and teardown. Admission is always by registered email and always
// admin-gated.
type FamilyService struct {
	store  storage.Store
	logger *log.Logger
}

func NewFamilyService(store storage.Store, logger *log.Logger) *FamilyService {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentFamily)
	}
	return &FamilyService{store: store, logger: logger}
}

// FamilyView is a family plus its resolved member list.
type FamilyView struct {
	Family  core.Family
	Members []MemberView
}

// MemberView pairs a membership with its display profile.
type MemberView struct {
	Member  core.FamilyMember
	Profile core.Profile
}

// Create makes a new family with the creator as first admin. The two inserts
// are not atomic across backends, so a failed membership insert rolls the
// family back before returning.
func (s *FamilyService) Create(ctx context.Context, userID, name string) (core.Family, error) {
	family := core.Family{Name: name, CreatedBy: userID}
	if err := family.Validate(); err != nil {
		return core.Family{}, err
	}

	created, err := s.store.CreateFamily(ctx, family)
	if err != nil {
		return core.Family{}, fmt.Errorf("create family: %w", err)
	}

	_, err = s.store.AddFamilyMember(ctx, core.FamilyMember{
		FamilyID: created.ID,
		UserID:   userID,
		Role:     core.RoleAdmin,
	})
	if err != nil {
		if delErr := s.store.DeleteFamily(ctx, created.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "Failed to roll back family after membership failure",
				log.FieldError, delErr,
				log.FieldFamilyID, created.ID)
		}
		return core.Family{}, fmt.Errorf("add creator as admin: %w", err)
	}

	s.logger.InfoContext(ctx, "Family created",
		log.FieldFamilyID, created.ID,
		log.FieldUserID, userID)
	return created, nil
}

// requireAdmin loads the actor's membership in the family and checks the
// admin role.
func (s *FamilyService) requireAdmin(ctx context.Context, familyID, userID string) error {
	members, err := s.store.ListFamilyMembers(ctx, familyID)
	if err != nil {
		return fmt.Errorf("list family members: %w", err)
	}
	for _, m := range members {
		if m.UserID == userID {
			if m.Role != core.RoleAdmin {
				return ErrNotAdmin
			}
			return nil
		}
	}
	return ErrNotAdmin
}

// AddMemberByEmail admits the profile registered under email as a regular
// member. Adding someone who is already a member is a no-op; the returned
// bool tells whether a new membership was created.
func (s *FamilyService) AddMemberByEmail(ctx context.Context, actorID, familyID, email string) (bool, error) {
	if err := s.requireAdmin(ctx, familyID, actorID); err != nil {
		return false, err
	}

	profile, err := s.store.GetProfileByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return false, ErrProfileNotFound
	}
	if err != nil {
		return false, fmt.Errorf("look up profile: %w", err)
	}

	added, err := s.store.AddFamilyMember(ctx, core.FamilyMember{
		FamilyID: familyID,
		UserID:   profile.ID,
		Role:     core.RoleMember,
	})
	if err != nil {
		return false, fmt.Errorf("add family member: %w", err)
	}

	if added {
		s.logger.InfoContext(ctx, "Family member added",
			log.FieldFamilyID, familyID,
			log.FieldUserID, profile.ID,
			log.FieldEmail, email)
	}
	return added, nil
}

// RemoveMember removes a regular member. Admins cannot be removed; delete the
// family instead.
func (s *FamilyService) RemoveMember(ctx context.Context, actorID, familyID, userID string) error {
	if err := s.requireAdmin(ctx, familyID, actorID); err != nil {
		return err
	}

	members, err := s.store.ListFamilyMembers(ctx, familyID)
	if err != nil {
		return fmt.Errorf("list family members: %w", err)
	}
	for _, m := range members {
		if m.UserID == userID && m.Role == core.RoleAdmin {
			return ErrMemberIsAdmin
		}
	}

	if err := s.store.RemoveFamilyMember(ctx, familyID, userID); err != nil {
		return fmt.Errorf("remove family member: %w", err)
	}
	s.logger.InfoContext(ctx, "Family member removed",
		log.FieldFamilyID, familyID,
		log.FieldUserID, userID)
	return nil
}

// Delete tears down the family. Memberships and shared transactions cascade
// away with it.
func (s *FamilyService) Delete(ctx context.Context, actorID, familyID string) error {
	if err := s.requireAdmin(ctx, familyID, actorID); err != nil {
		return err
	}
	if err := s.store.DeleteFamily(ctx, familyID); err != nil {
		return fmt.Errorf("delete family: %w", err)
	}
	s.logger.InfoContext(ctx, "Family deleted",
		log.FieldFamilyID, familyID,
		log.FieldUserID, actorID)
	return nil
}

// ForUser resolves the caller's family and members, or ErrNoFamily.
func (s *FamilyService) ForUser(ctx context.Context, userID string) (*FamilyView, error) {
	membership, err := s.store.GetMembership(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	if membership == nil {
		return nil, ErrNoFamily
	}

	family, err := s.store.GetFamily(ctx, membership.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("load family: %w", err)
	}

	members, err := s.resolveMembers(ctx, family.ID)
	if err != nil {
		return nil, err
	}
	return &FamilyView{Family: family, Members: members}, nil
}

// Members lists a family's members with display profiles. The caller must
// belong to the family.
func (s *FamilyService) Members(ctx context.Context, actorID, familyID string) ([]MemberView, error) {
	membership, err := s.store.GetMembership(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load membership: %w", err)
	}
	if membership == nil || membership.FamilyID != familyID {
		return nil, ErrForbidden
	}
	return s.resolveMembers(ctx, familyID)
}

func (s *FamilyService) resolveMembers(ctx context.Context, familyID string) ([]MemberView, error) {
	members, err := s.store.ListFamilyMembers(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}

	userIDs := make([]string, len(members))
	for i, m := range members {
		userIDs[i] = m.UserID
	}
	profiles, err := s.store.GetProfiles(ctx, userIDs)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to resolve member profiles",
			log.FieldError, err,
			log.FieldFamilyID, familyID)
		profiles = nil
	}

	views := make([]MemberView, len(members))
	for i, m := range members {
		mv := MemberView{Member: m, Profile: core.Profile{ID: m.UserID, FullName: core.PlaceholderName}}
		if p, ok := profiles[m.UserID]; ok {
			if p.FullName == "" {
				p.FullName = core.PlaceholderName
			}
			mv.Profile = p
		}
		views[i] = mv
	}
	return views, nil
}
