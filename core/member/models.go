package member

import (
	"net/url"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/umoja/core"
)

// Committee designations. The organization runs in Bangla; the remote rows
// carry these strings verbatim.
const (
	DesignationPresident        = "সভাপতি"
	DesignationVicePresident    = "সহ সভাপতি"
	DesignationGeneralSecretary = "সাধারণ সম্পাদক"
	DesignationFinanceSecretary = "অর্থ সম্পাদক"
	DesignationDeputyFinanceSec = "সহ অর্থ সম্পাদক"
	DesignationMember           = "সদস্য"
)

var (
	AllDesignations = []string{
		DesignationPresident,
		DesignationVicePresident,
		DesignationGeneralSecretary,
		DesignationFinanceSecretary,
		DesignationDeputyFinanceSec,
		DesignationMember,
	}

	// PrivilegedDesignations may reach the admin surface. This only controls
	// UI reachability; the row store applies its own authorization.
	PrivilegedDesignations = []string{
		DesignationFinanceSecretary,
		DesignationDeputyFinanceSec,
	}

	BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

	ErrAuthenticationFailed = errors.New("invalid mobile number or password")
)

// Member mirrors a row of the remote `profiles` table. The ID is assigned by
// the row store (gen_random_uuid()); it is never invented locally.
type Member struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Designation string `json:"designation"`
	Mobile      string `json:"mobile"`
	BloodGroup  string `json:"blood_group"`
	Address     string `json:"address"`
	Email       string `json:"email"`
	ProfilePic  string `json:"profile_pic"`
	Password    string `json:"password,omitempty"` // bcrypt hash
}

func (m *Member) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	m.Password = string(hash)
	return nil
}

func (m *Member) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(m.Password), []byte(pwd))
}

func (m *Member) IsPrivileged() bool {
	for _, d := range PrivilegedDesignations {
		if m.Designation == d {
			return true
		}
	}
	return false
}

// CanAdminister reports whether the session member may reach privileged
// views and mutations. A missing session never can.
func CanAdminister(m *Member) bool {
	return m != nil && m.IsPrivileged()
}

// DefaultAvatarURL builds the placeholder avatar used when a member signs up
// without a picture.
func DefaultAvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) +
		"&background=4f46e5&color=fff&size=200"
}

// NewMember contains information needed to register a new Member.
type NewMember struct {
	Name        string `json:"name" validate:"required"`
	Designation string `json:"designation" validate:"required,designation"`
	Mobile      string `json:"mobile" validate:"required,bdmobile"`
	Password    string `json:"password" validate:"required,min=4"`
	BloodGroup  string `json:"blood_group" validate:"required,bloodgroup"`
	Address     string `json:"address"`
}

func (nm *NewMember) Validate() error {
	nm.Name = core.CleanString(nm.Name)
	nm.Mobile = core.CleanString(nm.Mobile)
	nm.BloodGroup = core.CleanString(nm.BloodGroup)
	nm.Address = core.CleanString(nm.Address)
	return core.Validate.Struct(nm)
}

// Member builds the profile row to send to the store. The password is hashed;
// the id is left for the store to assign.
func (nm *NewMember) Member() (Member, error) {
	m := Member{
		Name:        nm.Name,
		Designation: nm.Designation,
		Mobile:      nm.Mobile,
		BloodGroup:  nm.BloodGroup,
		Address:     nm.Address,
		ProfilePic:  DefaultAvatarURL(nm.Name),
	}
	if err := m.SetPassword(nm.Password); err != nil {
		return Member{}, err
	}
	return m, nil
}

// Authenticate matches credentials against the last-fetched member list.
func Authenticate(members []Member, mobile, pwd string) (Member, error) {
	mobile = core.CleanString(mobile)
	for _, m := range members {
		if m.Mobile == mobile && m.CheckPassword(pwd) == nil {
			return m, nil
		}
	}
	return Member{}, ErrAuthenticationFailed
}
