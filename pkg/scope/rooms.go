package scope

// RoomKey identifies one coarse delivery audience. Keys are always built
// through the constructors below so the "<kind>:<id>" format lives in
// exactly one place.
type RoomKey string

func UserRoom(userID string) RoomKey       { return RoomKey("user:" + userID) }
func BranchRoom(branchID string) RoomKey   { return RoomKey("branch:" + branchID) }
func CompanyRoom(companyID string) RoomKey { return RoomKey("company:" + companyID) }
func RoleRoom(role string) RoomKey         { return RoomKey("role:" + role) }
func TableRoom(tableID string) RoomKey     { return RoomKey("table:" + tableID) }
func OrderRoom(orderID string) RoomKey     { return RoomKey("order:" + orderID) }

// KitchenRoom is the kitchen-display audience of one branch.
func KitchenRoom(branchID string) RoomKey { return RoomKey("kitchen:" + branchID) }

// IdentityRoom maps a declared identity attribute to the coarse room
// every connection holding it is joined to.
func IdentityRoom(kind IdentityKind, value string) RoomKey {
	switch kind {
	case IdentityUser:
		return UserRoom(value)
	case IdentityBranch:
		return BranchRoom(value)
	case IdentityCompany:
		return CompanyRoom(value)
	case IdentityRole:
		return RoleRoom(value)
	}
	return RoomKey(string(kind) + ":" + value)
}
