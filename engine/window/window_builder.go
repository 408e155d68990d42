package window

// Settings is the construction state shared by every Window implementation.
type Settings struct {
	Title     string
	Width     int
	Height    int
	MinWidth  int
	MinHeight int
	MaxWidth  int
	MaxHeight int
}

// WindowBuilderOption is a functional option applied to window Settings during construction.
type WindowBuilderOption func(s *Settings)

// DefaultSettings returns the settings a window starts from before options are applied.
func DefaultSettings() Settings {
	return Settings{
		Title:     "Flowers",
		Width:     1280,
		Height:    720,
		MinWidth:  200,
		MinHeight: 200,
		MaxWidth:  3840,
		MaxHeight: 2160,
	}
}

// ApplyOptions returns DefaultSettings with the given options applied in order.
func ApplyOptions(options ...WindowBuilderOption) Settings {
	s := DefaultSettings()
	for _, opt := range options {
		opt(&s)
	}
	return s
}

// WithTitle sets the window title.
//
// Parameters:
//   - title: the title shown by the platform
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(s *Settings) {
		s.Title = title
	}
}

// WithWidth sets the initial width in pixels.
//
// Parameters:
//   - width: the initial width
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithWidth(width int) WindowBuilderOption {
	return func(s *Settings) {
		s.Width = width
	}
}

// WithHeight sets the initial height in pixels.
//
// Parameters:
//   - height: the initial height
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithHeight(height int) WindowBuilderOption {
	return func(s *Settings) {
		s.Height = height
	}
}

// WithMinSize sets the smallest size the platform window may be resized to.
func WithMinSize(width, height int) WindowBuilderOption {
	return func(s *Settings) {
		s.MinWidth = width
		s.MinHeight = height
	}
}

// WithMaxSize sets the largest size the platform window may be resized to.
func WithMaxSize(width, height int) WindowBuilderOption {
	return func(s *Settings) {
		s.MaxWidth = width
		s.MaxHeight = height
	}
}
