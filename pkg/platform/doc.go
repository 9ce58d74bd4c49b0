// SPDX-License-Identifier: MPL-2.0

// Package platform normalizes CPU-architecture names so the right variant
// of a multi-arch environment image is pulled on any host.
package platform
