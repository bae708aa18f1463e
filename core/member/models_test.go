package member

import (
	"strings"
	"testing"
)

func TestCanAdminister(t *testing.T) {
	tests := []struct {
		name        string
		designation string
		want        bool
	}{
		{"president", DesignationPresident, false},
		{"vice president", DesignationVicePresident, false},
		{"general secretary", DesignationGeneralSecretary, false},
		{"finance secretary", DesignationFinanceSecretary, true},
		{"deputy finance secretary", DesignationDeputyFinanceSec, true},
		{"plain member", DesignationMember, false},
		{"unknown", "whatever", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Member{Designation: tt.designation}
			if got := CanAdminister(m); got != tt.want {
				t.Errorf("CanAdminister() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("nil member", func(t *testing.T) {
		if CanAdminister(nil) {
			t.Error("CanAdminister(nil) = true, want false")
		}
	})
}

func TestNewMember_Validate(t *testing.T) {
	valid := func() NewMember {
		return NewMember{
			Name:        "Karim",
			Designation: DesignationMember,
			Mobile:      "01712345678",
			Password:    "s3cret",
			BloodGroup:  "B+",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*NewMember)
		wantErr bool
	}{
		{"valid", func(nm *NewMember) {}, false},
		{"trims whitespace", func(nm *NewMember) { nm.Mobile = "  01712345678  " }, false},
		{"missing name", func(nm *NewMember) { nm.Name = "" }, true},
		{"bad designation", func(nm *NewMember) { nm.Designation = "চেয়ারম্যান" }, true},
		{"mobile not bd format", func(nm *NewMember) { nm.Mobile = "12345" }, true},
		{"mobile too short", func(nm *NewMember) { nm.Mobile = "0171234" }, true},
		{"short password", func(nm *NewMember) { nm.Password = "abc" }, true},
		{"bad blood group", func(nm *NewMember) { nm.BloodGroup = "Z+" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nm := valid()
			tt.mutate(&nm)
			err := nm.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewMember_Member(t *testing.T) {
	nm := NewMember{
		Name:        "Karim",
		Designation: DesignationMember,
		Mobile:      "01712345678",
		Password:    "s3cret",
		BloodGroup:  "B+",
	}
	m, err := nm.Member()
	if err != nil {
		t.Fatalf("Member() failed, %v", err)
	}
	if m.ID != "" {
		t.Errorf("ID = %q, want empty (store-assigned)", m.ID)
	}
	if m.Password == "s3cret" || m.Password == "" {
		t.Error("password not hashed")
	}
	if err := m.CheckPassword("s3cret"); err != nil {
		t.Errorf("CheckPassword() failed, %v", err)
	}
	if !strings.Contains(m.ProfilePic, "ui-avatars.com") {
		t.Errorf("ProfilePic = %q, want placeholder avatar", m.ProfilePic)
	}
}

func TestAuthenticate(t *testing.T) {
	mbr := Member{ID: "m1", Name: "Karim", Mobile: "01712345678"}
	if err := mbr.SetPassword("s3cret"); err != nil {
		t.Fatalf("SetPassword() failed, %v", err)
	}
	members := []Member{mbr}

	t.Run("ok", func(t *testing.T) {
		got, err := Authenticate(members, "01712345678", "s3cret")
		if err != nil {
			t.Fatalf("Authenticate() failed, %v", err)
		}
		if got.ID != "m1" {
			t.Errorf("ID = %q, want m1", got.ID)
		}
	})

	t.Run("mobile cleaned", func(t *testing.T) {
		if _, err := Authenticate(members, "  01712345678 ", "s3cret"); err != nil {
			t.Errorf("Authenticate() failed, %v", err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := Authenticate(members, "01712345678", "nope"); err != ErrAuthenticationFailed {
			t.Errorf("Authenticate() error = %v, want ErrAuthenticationFailed", err)
		}
	})

	t.Run("unknown mobile", func(t *testing.T) {
		if _, err := Authenticate(members, "01800000000", "s3cret"); err != ErrAuthenticationFailed {
			t.Errorf("Authenticate() error = %v, want ErrAuthenticationFailed", err)
		}
	})
}
