// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RoutePostSlug is the public post route pattern.
	RoutePostSlug = "/post/{slug}"

	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"

	// RouteAdmin is the admin root, serving the post list. The
	// remaining admin patterns are relative to it.
	RouteAdmin = "/admin"
	// RouteAdminCreate is the new-post route.
	RouteAdminCreate = "/create"
	// RouteAdminEdit is the post edit route pattern.
	RouteAdminEdit = "/edit/{id}"
	// RouteAdminDelete is the post delete route pattern.
	RouteAdminDelete = "/delete/{id}"
	// RouteAdminImport is the document import route.
	RouteAdminImport = "/import-docx"

	// RouteHealth is the health check route.
	RouteHealth = "/health"
	// RouteMetrics is the metrics scrape route.
	RouteMetrics = "/metrics"
)

// Redirect targets.
const (
	redirectLogin = RouteLogin
	redirectAdmin = RouteAdmin
)
