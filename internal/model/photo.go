package model

// PhotoSource names the adapter that discovered a photo.
type PhotoSource string

const (
	SourceDirectory   PhotoSource = "yelp"
	SourceSocial      PhotoSource = "instagram"
	SourceMap         PhotoSource = "google_places"
	SourceImageSearch PhotoSource = "google_images"
)

// Priority returns the ordering rank of a source; lower is more trustworthy.
func (s PhotoSource) Priority() int {
	switch s {
	case SourceDirectory:
		return 1
	case SourceSocial:
		return 2
	case SourceMap:
		return 3
	case SourceImageSearch:
		return 4
	}
	return 5
}

// PhotoRole describes what a photo depicts within its source.
type PhotoRole string

const (
	RoleMain    PhotoRole = "main"
	RoleGallery PhotoRole = "gallery"
	RolePost    PhotoRole = "post"
	RoleSearch  PhotoRole = "search"
	RoleOwner   PhotoRole = "owner"
	RoleUser    PhotoRole = "user"
)

// Photo is a candidate image for one lead.
type Photo struct {
	URL    string      `json:"url"`
	Source PhotoSource `json:"source"`
	Role   PhotoRole   `json:"type"`
}

// DeliveryPresence records which delivery platforms list the restaurant.
type DeliveryPresence struct {
	DoorDash bool `json:"doordash"`
	UberEats bool `json:"ubereats"`
}

// Any reports whether either platform listing was found.
func (d DeliveryPresence) Any() bool {
	return d.DoorDash || d.UberEats
}

// HuntResult is everything the photo hunt learned about one restaurant.
type HuntResult struct {
	Photos    []Photo          `json:"photos"`
	Tier      Tier             `json:"tier"`
	Delivery  DeliveryPresence `json:"delivery"`
	Directory *DirectoryInfo   `json:"directory,omitempty"`
}
