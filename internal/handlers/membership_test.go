package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HammerMeetNail/guestlist/internal/models"
	"github.com/HammerMeetNail/guestlist/internal/services"
)

func TestMembershipHandler_Invite_ResolvesMe(t *testing.T) {
	var gotUser, gotBy string
	handler := NewMembershipHandler(&mockMembershipService{
		InviteFunc: func(ctx context.Context, hostID, userID, by string) (*models.HostMembership, error) {
			gotUser, gotBy = userID, by
			return &models.HostMembership{HostID: hostID, UserID: userID, Status: models.MembershipInvited, InvitedBy: by}, nil
		},
	})
	req := newRequest(http.MethodPost, "/api/hosts/h1/members/me", "owner", map[string]string{"id": "h1", "user": "me"})
	rr := httptest.NewRecorder()
	handler.Invite(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if gotUser != "owner" || gotBy != "owner" {
		t.Fatalf("expected me to resolve to caller, got %q by %q", gotUser, gotBy)
	}
}

func TestMembershipHandler_Invite_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not manager", services.ErrNotHostManager, http.StatusForbidden, "Not allowed to manage this host"},
		{"missing host", services.ErrHostNotFound, http.StatusNotFound, "Host not found"},
		{"member", services.ErrAlreadyMember, http.StatusConflict, "Already a member"},
		{"pending", services.ErrInvitePending, http.StatusConflict, "Invite already pending"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewMembershipHandler(&mockMembershipService{
				InviteFunc: func(ctx context.Context, hostID, userID, by string) (*models.HostMembership, error) {
					return nil, tt.err
				},
			})
			req := newRequest(http.MethodPost, "/api/hosts/h1/members/u2", "owner", map[string]string{"id": "h1", "user": "u2"})
			rr := httptest.NewRecorder()
			handler.Invite(rr, req)
			assertErrorResponse(t, rr, tt.status, tt.message)
		})
	}
}

func TestMembershipHandler_Accept_Success(t *testing.T) {
	handler := NewMembershipHandler(&mockMembershipService{})
	req := newRequest(http.MethodPost, "/api/hosts/h1/membership/accept", "u2", map[string]string{"id": "h1"})
	rr := httptest.NewRecorder()
	handler.Accept(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var response MembershipResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Membership == nil || response.Membership.Status != models.MembershipJoined {
		t.Fatalf("unexpected membership: %+v", response.Membership)
	}
}

func TestMembershipHandler_Accept_DependentStepFailure(t *testing.T) {
	handler := NewMembershipHandler(&mockMembershipService{
		AcceptFunc: func(ctx context.Context, hostID, userID string) (*models.HostMembership, error) {
			return nil, &services.DependentStepError{
				Operation:        "accept membership",
				Step:             "user.membership",
				PrimaryCommitted: true,
				Err:              errors.New("write failed"),
			}
		},
	})
	req := newRequest(http.MethodPost, "/api/hosts/h1/membership/accept", "u2", map[string]string{"id": "h1"})
	rr := httptest.NewRecorder()
	handler.Accept(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	var response DependentStepResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !response.Committed || response.FailedStep != "user.membership" {
		t.Fatalf("unexpected response: %+v", response)
	}
}

func TestMembershipHandler_Reject_NoInvite(t *testing.T) {
	handler := NewMembershipHandler(&mockMembershipService{
		RejectFunc: func(ctx context.Context, hostID, userID string) error {
			return services.ErrInviteNotFound
		},
	})
	req := newRequest(http.MethodPost, "/api/hosts/h1/membership/reject", "u2", map[string]string{"id": "h1"})
	rr := httptest.NewRecorder()
	handler.Reject(rr, req)
	assertErrorResponse(t, rr, http.StatusNotFound, "Invite not found")
}

func TestMembershipHandler_Remove_Self(t *testing.T) {
	var gotUser, gotBy string
	handler := NewMembershipHandler(&mockMembershipService{
		RemoveFunc: func(ctx context.Context, hostID, userID, by string) error {
			gotUser, gotBy = userID, by
			return nil
		},
	})
	req := newRequest(http.MethodDelete, "/api/hosts/h1/members/me", "u2", map[string]string{"id": "h1", "user": "me"})
	rr := httptest.NewRecorder()
	handler.Remove(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotUser != "u2" || gotBy != "u2" {
		t.Fatalf("unexpected removal %q by %q", gotUser, gotBy)
	}
}

func TestMembershipHandler_Members(t *testing.T) {
	handler := NewMembershipHandler(&mockMembershipService{
		MembersFunc: func(ctx context.Context, hostID string) ([]models.HostMembership, error) {
			return []models.HostMembership{{HostID: hostID, UserID: "u2", Status: models.MembershipJoined}}, nil
		},
	})
	req := newRequest(http.MethodGet, "/api/hosts/h1/members", "u1", map[string]string{"id": "h1"})
	rr := httptest.NewRecorder()
	handler.Members(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var response MembersResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response.Members) != 1 || response.Members[0].UserID != "u2" {
		t.Fatalf("unexpected members: %+v", response.Members)
	}
}
