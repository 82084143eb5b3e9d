package models

import "testing"

func TestValidateGuestPhone(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantErr bool
	}{
		{name: "saudi number", phone: "+966501234567", wantErr: false},
		{name: "uae number", phone: "+971501234567", wantErr: false},
		{name: "bahrain number", phone: "+97333123456", wantErr: false},
		{name: "kuwait number", phone: "+96550123456", wantErr: false},
		{name: "oman number", phone: "+96891234567", wantErr: false},
		{name: "qatar number", phone: "+97433123456", wantErr: false},
		{name: "egypt number", phone: "+201001234567", wantErr: false},
		{name: "empty", phone: "", wantErr: true},
		{name: "whitespace only", phone: "   ", wantErr: true},
		{name: "german number", phone: "+4915112345678", wantErr: true},
		{name: "us number", phone: "+14155551234", wantErr: true},
		{name: "missing country code", phone: "0501234567", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGuestPhone(tt.phone)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGuestPhone(%q) error = %v, wantErr %v", tt.phone, err, tt.wantErr)
			}
		})
	}
}

func TestGuestCreateRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     GuestCreateRequest
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid request",
			req:     GuestCreateRequest{Name: "Guest One", Phone: "+966501234567", NumberOfAccompanying: 2},
			wantErr: false,
		},
		{
			name:    "empty name",
			req:     GuestCreateRequest{Name: " ", Phone: "+966501234567", NumberOfAccompanying: 1},
			wantErr: true,
			errMsg:  "guest name is required",
		},
		{
			name:    "zero accompanying",
			req:     GuestCreateRequest{Name: "Guest One", Phone: "+966501234567", NumberOfAccompanying: 0},
			wantErr: true,
			errMsg:  "a guest covers at least one invite",
		},
		{
			name:    "unsupported country code",
			req:     GuestCreateRequest{Name: "Guest One", Phone: "+4915112345678", NumberOfAccompanying: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("GuestCreateRequest.Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errMsg != "" && err.Error() != tt.errMsg {
				t.Errorf("GuestCreateRequest.Validate() error = %v, want %v", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestGuestUpdateRequest_Validate(t *testing.T) {
	name := "Renamed"
	empty := " "
	phone := "+966501234567"
	badPhone := "+4915112345678"
	one := 1
	zero := 0

	tests := []struct {
		name    string
		req     GuestUpdateRequest
		wantErr bool
	}{
		{name: "empty update", req: GuestUpdateRequest{}, wantErr: false},
		{name: "rename", req: GuestUpdateRequest{Name: &name}, wantErr: false},
		{name: "blank name", req: GuestUpdateRequest{Name: &empty}, wantErr: true},
		{name: "new phone", req: GuestUpdateRequest{Phone: &phone}, wantErr: false},
		{name: "bad phone", req: GuestUpdateRequest{Phone: &badPhone}, wantErr: true},
		{name: "accompanying to one", req: GuestUpdateRequest{NumberOfAccompanying: &one}, wantErr: false},
		{name: "accompanying to zero", req: GuestUpdateRequest{NumberOfAccompanying: &zero}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("GuestUpdateRequest.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGuest_InviteWeight(t *testing.T) {
	guest := Guest{NumberOfAccompanying: 3}
	if got := guest.InviteWeight(); got != 3 {
		t.Errorf("Guest.InviteWeight() = %v, want 3", got)
	}
}

func TestGuest_AddedByOwner(t *testing.T) {
	owner := Guest{AddedByType: ActorOwner}
	if !owner.AddedByOwner() {
		t.Errorf("Guest.AddedByOwner() = false for an owner-added guest")
	}

	collab := Guest{AddedByType: ActorCollaborator}
	if collab.AddedByOwner() {
		t.Errorf("Guest.AddedByOwner() = true for a collaborator-added guest")
	}
}
