package profilestruct

// Profile is one directory entry. JSON names match the persisted layout.
type Profile struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Description string `json:"description"`
	Interests   string `json:"interests"`
	ImageFile   string `json:"imageFile"`
}

// ProfileDraft is a profile that has not been stored yet.
type ProfileDraft struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required"`
	Address     string `json:"address" validate:"required"`
	Description string `json:"description" validate:"required"`
	Interests   string `json:"interests" validate:"required"`
	ImageFile   string `json:"imageFile"`
}

// Draft strips the identifier.
func (p Profile) Draft() ProfileDraft {
	return ProfileDraft{
		Name:        p.Name,
		Email:       p.Email,
		Phone:       p.Phone,
		Address:     p.Address,
		Description: p.Description,
		Interests:   p.Interests,
		ImageFile:   p.ImageFile,
	}
}

// WithID turns the draft into a Profile carrying id.
func (d ProfileDraft) WithID(id int64) Profile {
	return Profile{
		ID:          id,
		Name:        d.Name,
		Email:       d.Email,
		Phone:       d.Phone,
		Address:     d.Address,
		Description: d.Description,
		Interests:   d.Interests,
		ImageFile:   d.ImageFile,
	}
}

// Segment is one piece of highlighted text.
type Segment struct {
	Text  string `json:"text"`
	Match bool   `json:"match"`
}

// ImportResult reports what a spreadsheet import did.
type ImportResult struct {
	Imported     int            `json:"imported"`
	RejectedRows map[int]string `json:"rejectedRows,omitempty"`
}
