package sqlite

// Users store DDL.
const (
	createUsers = `CREATE TABLE IF NOT EXISTS users (
    username TEXT PRIMARY KEY,
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	createSessions = `CREATE TABLE IF NOT EXISTS sessions (
    token TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    created_at TEXT NOT NULL,
    expires_at TEXT NOT NULL,
    FOREIGN KEY (username) REFERENCES users(username) ON DELETE CASCADE
);`

	createUserPreferences = `CREATE TABLE IF NOT EXISTS user_preferences (
    username TEXT NOT NULL,
    setting_key TEXT NOT NULL,
    setting_value TEXT NOT NULL,
    PRIMARY KEY (username, setting_key),
    FOREIGN KEY (username) REFERENCES users(username) ON DELETE CASCADE
);`

	idxSessionsExpires = `CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);`
	idxSessionsUser    = `CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(username);`
)

// Catalog store DDL. Parent rows are protected with ON DELETE RESTRICT; the
// table accessors check for children first and report ErrHasChildren, the
// constraint is the backstop.
const (
	createCompanies = `CREATE TABLE IF NOT EXISTS companies (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE COLLATE NOCASE
);`

	createProductLines = `CREATE TABLE IF NOT EXISTS product_lines (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    company_id INTEGER NOT NULL,
    FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE RESTRICT
);`

	createProductSets = `CREATE TABLE IF NOT EXISTS product_sets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    product_line_id INTEGER NOT NULL,
    FOREIGN KEY (product_line_id) REFERENCES product_lines(id) ON DELETE RESTRICT
);`

	createMiniatureTypes = `CREATE TABLE IF NOT EXISTS miniature_types (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE COLLATE NOCASE
);`

	createMiniatureCategories = `CREATE TABLE IF NOT EXISTS miniature_categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL
);`

	createTypeCategories = `CREATE TABLE IF NOT EXISTS type_categories (
    type_id INTEGER NOT NULL,
    category_id INTEGER NOT NULL,
    PRIMARY KEY (type_id, category_id),
    FOREIGN KEY (type_id) REFERENCES miniature_types(id) ON DELETE RESTRICT,
    FOREIGN KEY (category_id) REFERENCES miniature_categories(id) ON DELETE CASCADE
);`

	createTags = `CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE COLLATE NOCASE
);`

	createBaseSizes = `CREATE TABLE IF NOT EXISTS base_sizes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE COLLATE NOCASE,
    sort_order INTEGER NOT NULL DEFAULT 0
);`

	createPaintedBy = `CREATE TABLE IF NOT EXISTS painted_by (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE COLLATE NOCASE
);`

	createMinis = `CREATE TABLE IF NOT EXISTS minis (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT,
    location TEXT NOT NULL DEFAULT '',
    quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 0),
    painted_by_id INTEGER NOT NULL,
    base_size_id INTEGER NOT NULL,
    product_set_id INTEGER,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (painted_by_id) REFERENCES painted_by(id) ON DELETE RESTRICT,
    FOREIGN KEY (base_size_id) REFERENCES base_sizes(id) ON DELETE RESTRICT,
    FOREIGN KEY (product_set_id) REFERENCES product_sets(id) ON DELETE RESTRICT
);`

	createMiniTypes = `CREATE TABLE IF NOT EXISTS mini_types (
    mini_id INTEGER NOT NULL,
    type_id INTEGER NOT NULL,
    proxy_type INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (mini_id, type_id),
    FOREIGN KEY (mini_id) REFERENCES minis(id) ON DELETE CASCADE,
    FOREIGN KEY (type_id) REFERENCES miniature_types(id) ON DELETE RESTRICT
);`

	createMiniTags = `CREATE TABLE IF NOT EXISTS mini_tags (
    mini_id INTEGER NOT NULL,
    tag_id INTEGER NOT NULL,
    PRIMARY KEY (mini_id, tag_id),
    FOREIGN KEY (mini_id) REFERENCES minis(id) ON DELETE CASCADE,
    FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
);`
)

// Catalog indexes for the parent-scoped listings and the join lookups.
const (
	idxProductLinesCompany  = `CREATE INDEX IF NOT EXISTS idx_product_lines_company ON product_lines(company_id);`
	idxProductSetsLine      = `CREATE INDEX IF NOT EXISTS idx_product_sets_line ON product_sets(product_line_id);`
	idxTypeCategoriesCat    = `CREATE INDEX IF NOT EXISTS idx_type_categories_category ON type_categories(category_id);`
	idxMinisProductSet      = `CREATE INDEX IF NOT EXISTS idx_minis_product_set ON minis(product_set_id);`
	idxMinisPaintedBy       = `CREATE INDEX IF NOT EXISTS idx_minis_painted_by ON minis(painted_by_id);`
	idxMinisBaseSize        = `CREATE INDEX IF NOT EXISTS idx_minis_base_size ON minis(base_size_id);`
	idxMinisCreated         = `CREATE INDEX IF NOT EXISTS idx_minis_created ON minis(created_at);`
	idxMiniTypesType        = `CREATE INDEX IF NOT EXISTS idx_mini_types_type ON mini_types(type_id);`
	idxMiniTagsTag          = `CREATE INDEX IF NOT EXISTS idx_mini_tags_tag ON mini_tags(tag_id);`
)

// usersSchemaDDL lists the users store statements in dependency order.
var usersSchemaDDL = []string{
	createUsers,
	createSessions,
	createUserPreferences,
	idxSessionsExpires,
	idxSessionsUser,
}

// catalogSchemaDDL lists the catalog store statements in dependency order.
var catalogSchemaDDL = []string{
	createCompanies,
	createProductLines,
	createProductSets,
	createMiniatureTypes,
	createMiniatureCategories,
	createTypeCategories,
	createTags,
	createBaseSizes,
	createPaintedBy,
	createMinis,
	createMiniTypes,
	createMiniTags,
	idxProductLinesCompany,
	idxProductSetsLine,
	idxTypeCategoriesCat,
	idxMinisProductSet,
	idxMinisPaintedBy,
	idxMinisBaseSize,
	idxMinisCreated,
	idxMiniTypesType,
	idxMiniTagsTag,
}
