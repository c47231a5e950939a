package machine

// Active is the machine selection recorded in the store: either a named
// machine or no active machine at all.
type Active struct {
	name string
	set  bool
}

// NoActive returns the empty selection
func NoActive() Active {
	return Active{}
}

// ActiveNamed returns a selection of the named machine
func ActiveNamed(name string) Active {
	if name == "" {
		return NoActive()
	}
	return Active{name: name, set: true}
}

// Get returns the machine name and whether one is selected
func (a Active) Get() (string, bool) {
	return a.name, a.set
}

func (a Active) String() string {
	if !a.set {
		return "(none)"
	}
	return a.name
}
