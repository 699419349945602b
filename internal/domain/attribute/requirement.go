package attribute

// Kind is a piece of supporting information a dropdown option can require
type Kind string

const (
	KindComment    Kind = "comment"
	KindAttachment Kind = "attachment"
	KindURL        Kind = "url"
)

// Bit positions inside a dropdown option bitmask
const (
	bitComment    = 1 << 0
	bitAttachment = 1 << 1
	bitURL        = 1 << 2
)

// RequiredInfo tells which supporting information the selected option requires
type RequiredInfo struct {
	Comment    bool `json:"comment"`
	Attachment bool `json:"attachment"`
	URL        bool `json:"url"`
}

// requirementTable enumerates every combination of the three bits.
var requirementTable = [8]RequiredInfo{
	0:                                   {},
	bitComment:                          {Comment: true},
	bitAttachment:                       {Attachment: true},
	bitComment | bitAttachment:          {Comment: true, Attachment: true},
	bitURL:                              {URL: true},
	bitComment | bitURL:                 {Comment: true, URL: true},
	bitAttachment | bitURL:              {Attachment: true, URL: true},
	bitComment | bitAttachment | bitURL: {Comment: true, Attachment: true, URL: true},
}

// DecodeRequirement decodes an option bitmask. Bits above the url bit are ignored.
func DecodeRequirement(bitmask int) RequiredInfo {
	if bitmask < 0 {
		return RequiredInfo{}
	}
	return requirementTable[bitmask&(bitComment|bitAttachment|bitURL)]
}

// Any reports whether at least one kind is required
func (r RequiredInfo) Any() bool {
	return r.Comment || r.Attachment || r.URL
}

// Has reports whether the given kind is required
func (r RequiredInfo) Has(kind Kind) bool {
	switch kind {
	case KindComment:
		return r.Comment
	case KindAttachment:
		return r.Attachment
	case KindURL:
		return r.URL
	default:
		return false
	}
}

// Title renders the requirement the way the required-info dialog names it,
// e.g. "Required Comment, Evidence File".
func (r RequiredInfo) Title() string {
	parts := make([]string, 0, 3)
	if r.Comment {
		parts = append(parts, "Comment")
	}
	if r.Attachment {
		parts = append(parts, "Evidence File")
	}
	if r.URL {
		parts = append(parts, "Evidence Url")
	}
	title := "Required "
	for i, p := range parts {
		if i > 0 {
			title += ", "
		}
		title += p
	}
	return title
}
