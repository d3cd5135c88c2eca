// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package tools

// Permission describes the policy for a tool.
type Permission struct {
	Allowed             bool
	RequireConfirmation bool
}

// Policy configures which tools are allowed and which require confirmation.
// A nil Allow list allows every tool not named in Deny.
type Policy struct {
	Allow               []string
	Deny                []string
	RequireConfirmation []string
}

func contains(list []string, name string) bool {
	for _, item := range list {
		if item == name {
			return true
		}
	}
	return false
}

func (p Policy) permissionFor(name string) Permission {
	allowed := p.Allow == nil || contains(p.Allow, name)
	if contains(p.Deny, name) {
		allowed = false
	}
	return Permission{
		Allowed:             allowed,
		RequireConfirmation: contains(p.RequireConfirmation, name),
	}
}

// AllowTool marks a tool as allowed and optionally keeps confirmation requirements.
func (r *Registry) AllowTool(name string, requireConfirmation bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perm := r.permissions[name]
	perm.Allowed = true
	perm.RequireConfirmation = requireConfirmation
	r.permissions[name] = perm
}

// SetAllowed toggles whether a tool is allowed.
func (r *Registry) SetAllowed(name string, allowed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perm := r.permissions[name]
	perm.Allowed = allowed
	r.permissions[name] = perm
}

// SetRequireConfirmation toggles per-tool confirmation.
func (r *Registry) SetRequireConfirmation(name string, require bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perm := r.permissions[name]
	perm.RequireConfirmation = require
	r.permissions[name] = perm
}

// GetPermission returns the current permission entry for a tool.
func (r *Registry) GetPermission(name string) Permission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if perm, ok := r.permissions[name]; ok {
		return perm
	}
	// Unknown tools are blocked and require confirmation.
	return Permission{Allowed: false, RequireConfirmation: true}
}
