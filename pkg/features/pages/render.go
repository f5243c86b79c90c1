package pages

import (
	"strconv"
	"strings"

	fileservice "github.com/Gamequic/ProfileDirectory/pkg/features/files/service"
	profileservice "github.com/Gamequic/ProfileDirectory/pkg/features/profiles/service"
	profilestruct "github.com/Gamequic/ProfileDirectory/pkg/features/profiles/struct"
)

// ListState is everything a list page depends on.
type ListState struct {
	Profiles []profilestruct.Profile
	Query    string
	Admin    bool
}

type Row struct {
	Number      int
	ID          int64
	ImageURL    string
	Name        []profilestruct.Segment
	Email       []profilestruct.Segment
	Address     []profilestruct.Segment
	Description string
	FirstName   string
}

type ListView struct {
	Title string
	Admin bool
	Query string
	Rows  []Row
	// Empty is true when nothing matched, not only when the store is empty.
	Empty bool
}

// RenderList is the list page for state. It has no side effects.
func RenderList(state ListState) ListView {
	title := "Profile List"
	if state.Admin {
		title = "Admin Panel"
	}

	matches := profileservice.Filter(state.Profiles, state.Query)
	rows := make([]Row, 0, len(matches))
	for i, p := range matches {
		rows = append(rows, Row{
			Number:      i + 1,
			ID:          p.ID,
			ImageURL:    ThumbnailURL(p.ImageFile),
			Name:        profileservice.Highlight(p.Name, state.Query),
			Email:       profileservice.Highlight(p.Email, state.Query),
			Address:     profileservice.Highlight(p.Address, state.Query),
			Description: p.Description,
			FirstName:   FirstName(p.Name),
		})
	}

	return ListView{
		Title: title,
		Admin: state.Admin,
		Query: state.Query,
		Rows:  rows,
		Empty: len(rows) == 0,
	}
}

// FormState is the form as last submitted, or as loaded for editing.
type FormState struct {
	// ID is zero in create mode.
	ID     int64
	Draft  profilestruct.ProfileDraft
	Errors map[string]string
}

type FormView struct {
	Title      string
	Action     string
	Submit     string
	Draft      profilestruct.ProfileDraft
	PreviewURL string
	Errors     map[string]string
}

func RenderForm(state FormState) FormView {
	view := FormView{
		Title:      "Add Profile",
		Action:     "/admin/profiles",
		Submit:     "Add Profile",
		Draft:      state.Draft,
		PreviewURL: ImageURL(state.Draft.ImageFile),
		Errors:     state.Errors,
	}
	if state.ID != 0 {
		view.Title = "Update Profile"
		view.Submit = "Update Profile"
		view.Action = "/admin/profiles/" + strconv.FormatInt(state.ID, 10)
	}
	return view
}

type DetailView struct {
	Profile  profilestruct.Profile
	ImageURL string
	// Error replaces the profile when it could not be shown.
	Error string
}

// RenderDetail shows profile, or why it cannot be shown. nothingStored means
// no collection was ever saved, which differs from a saved empty one.
func RenderDetail(profile profilestruct.Profile, err error, nothingStored bool) DetailView {
	if err != nil {
		if nothingStored {
			return DetailView{Error: "No profiles found in storage"}
		}
		return DetailView{Error: "Profile not found"}
	}
	return DetailView{Profile: profile, ImageURL: ImageURL(profile.ImageFile)}
}

// ImageURL is where the browser can load the image behind ref, or "" when it cannot.
func ImageURL(ref string) string {
	state, name := fileservice.ParseRef(ref)
	switch state {
	case fileservice.RefPending:
		return "/files/pending/" + name
	case fileservice.RefDurable:
		return fileservice.DurablePrefix + name
	case fileservice.RefExternal:
		return ref
	default:
		return ""
	}
}

// ThumbnailURL is ImageURL, preferring the small copy of promoted images.
func ThumbnailURL(ref string) string {
	if state, name := fileservice.ParseRef(ref); state == fileservice.RefDurable {
		return "/files/thumbs/" + name
	}
	return ImageURL(ref)
}

// FirstName is the first word of name, as shown in the map title.
func FirstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return name
	}
	return fields[0]
}
