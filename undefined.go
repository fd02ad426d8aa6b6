package granite

// undefined marks "no value produced yet". nil cannot play this role
// because nil is the externally visible null; a nullable node legitimately
// outputs nil. The sentinel never crosses the Validate boundary.
type undefined struct{}

func (undefined) String() string { return "Undefined" }

var undef = undefined{}
