package guard

import "pharmacy-guard-backend/internal/domain"

var roleGroups = map[domain.Role]string{
	domain.RoleAdmin:          domain.GroupAdmin,
	domain.RolePharmacyOwner:  domain.GroupPharmacy,
	domain.RoleDeliveryPerson: domain.GroupDelivery,
	domain.RoleCustomer:       domain.GroupTabs,
}

var dashboards = map[domain.Role]string{
	domain.RoleAdmin:          "/(admin)/dashboard",
	domain.RolePharmacyOwner:  "/(pharmacy)/dashboard",
	domain.RoleDeliveryPerson: "/(delivery)/dashboard",
	domain.RoleCustomer:       "/(tabs)",
}

// screens is the top-level stack in the order the app declares it.
var screens = []domain.Screen{
	{Name: domain.SegmentLogin},
	{Name: domain.SegmentRegister},
	{Name: domain.GroupTabs, Protected: true, Role: domain.RoleCustomer, Dashboard: dashboards[domain.RoleCustomer]},
	{Name: domain.GroupAdmin, Protected: true, Role: domain.RoleAdmin, Dashboard: dashboards[domain.RoleAdmin]},
	{Name: domain.GroupPharmacy, Protected: true, Role: domain.RolePharmacyOwner, Dashboard: dashboards[domain.RolePharmacyOwner]},
	{Name: domain.GroupDelivery, Protected: true, Role: domain.RoleDeliveryPerson, Dashboard: dashboards[domain.RoleDeliveryPerson]},
}

// Routes returns a copy of the static route table.
func Routes() []domain.Screen {
	out := make([]domain.Screen, len(screens))
	copy(out, screens)
	return out
}

// IsProtected reports whether segment is one of the role groups.
func IsProtected(segment string) bool {
	switch segment {
	case domain.GroupTabs, domain.GroupAdmin, domain.GroupPharmacy, domain.GroupDelivery:
		return true
	}
	return false
}

// IsKnownSegment reports whether segment names a top-level screen.
func IsKnownSegment(segment string) bool {
	for _, s := range screens {
		if s.Name == segment {
			return true
		}
	}
	return false
}

// AuthorizedGroup returns the only group role may stay in.
// Unknown roles get the customer tabs.
func AuthorizedGroup(role domain.Role) string {
	if g, ok := roleGroups[role]; ok {
		return g
	}
	return domain.GroupTabs
}

// DashboardRoute returns the landing route of role's group.
func DashboardRoute(role domain.Role) string {
	if d, ok := dashboards[role]; ok {
		return d
	}
	return dashboards[domain.RoleCustomer]
}
