package registry

// All templates register at package load so every consumer sees the same
// immutable catalog.
func init() {
	Register(Students)
	Register(Campuses)
	Register(Placements)
}
