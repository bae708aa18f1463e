package record

import "github.com/pkg/errors"

// Kind tags an entity collection; its value is the remote table name.
type Kind string

const (
	KindMember      Kind = "profiles"
	KindSchool      Kind = "schools"
	KindStudent     Kind = "students"
	KindUpdate      Kind = "updates"
	KindGallery     Kind = "gallery"
	KindTransaction Kind = "transactions"
	KindSettings    Kind = "site_settings"
	KindMessage     Kind = "messages"
)

// SettingsSentinelID keys the singleton site_settings row. Writes against
// site_settings always upsert this key; a second row is never created.
const SettingsSentinelID = "contact_info"

var (
	ErrUnknownKind = errors.New("unknown record kind")

	allKinds = []Kind{
		KindMember, KindSchool, KindStudent, KindUpdate,
		KindGallery, KindTransaction, KindSettings, KindMessage,
	}

	// numericID marks kinds whose rows carry numeric identifiers; the rest
	// use opaque strings assigned by the row store.
	numericID = map[Kind]bool{
		KindUpdate:      true,
		KindGallery:     true,
		KindTransaction: true,
		KindMessage:     true,
	}
)

func (k Kind) Table() string { return string(k) }

func (k Kind) HasNumericID() bool { return numericID[k] }

func KindFromString(s string) (Kind, error) {
	for _, k := range allKinds {
		if Kind(s) == k {
			return k, nil
		}
	}
	return "", ErrUnknownKind
}

// School owns zero or more Students by foreign key. Students/StudentCount are
// computed by the snapshot join, never stored remotely.
type School struct {
	ID           string    `json:"id,omitempty"`
	Name         string    `json:"name"`
	TeacherName  string    `json:"teacherName"`
	TeacherPhone string    `json:"teacherPhone"`
	TeacherImage string    `json:"teacherImage"`
	Established  string    `json:"established"`
	Students     []Student `json:"students,omitempty"`
	StudentCount int       `json:"studentCount"`
}

type Student struct {
	ID         string `json:"id,omitempty"`
	SchoolID   string `json:"school_id"`
	Name       string `json:"name"`
	FatherName string `json:"fatherName"`
	MotherName string `json:"motherName"`
	Mobile     string `json:"mobile"`
	ClassName  string `json:"className"`
	Roll       string `json:"roll"`
	Image      string `json:"image"`
}

// Update is an announcement. Date is the display date stamped at write time
// in the viewer's locale; it is never recomputed on read.
type Update struct {
	ID          int64  `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	MediaType   string `json:"media_type"`   // image | video
	AspectRatio string `json:"aspect_ratio"` // landscape | portrait
	Date        string `json:"date"`
}

type GalleryItem struct {
	ID          int64  `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Transaction records a fee payment. Date is set at creation and immutable
// thereafter.
type Transaction struct {
	ID       int64   `json:"id,omitempty"`
	MemberID string  `json:"userId"`
	Amount   float64 `json:"amount"`
	Month    string  `json:"month"`
	Date     string  `json:"date"`
}

type SiteSettings struct {
	ID       string `json:"id"`
	Phone1   string `json:"phone1"`
	Phone2   string `json:"phone2"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	Facebook string `json:"facebook"`
	Website  string `json:"website"`
}

type Message struct {
	ID         int64  `json:"id,omitempty"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"` // unix millis
}
