package storage

// status_time is stored as unix milliseconds in both dialects.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS site (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('INDEXING', 'INDEXED', 'FAILED')),
    status_time INTEGER NOT NULL,
    last_error TEXT
);

CREATE TABLE IF NOT EXISTS page (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_id INTEGER NOT NULL REFERENCES site(id) ON DELETE CASCADE,
    path TEXT NOT NULL,
    code INTEGER NOT NULL,
    content TEXT NOT NULL,
    UNIQUE (site_id, path)
);

CREATE TABLE IF NOT EXISTS lemma (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_id INTEGER NOT NULL REFERENCES site(id) ON DELETE CASCADE,
    lemma TEXT NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 0,
    UNIQUE (site_id, lemma)
);

CREATE TABLE IF NOT EXISTS posting (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id INTEGER NOT NULL REFERENCES page(id) ON DELETE CASCADE,
    lemma_id INTEGER NOT NULL REFERENCES lemma(id) ON DELETE CASCADE,
    lemma_rank REAL NOT NULL,
    UNIQUE (page_id, lemma_id)
);

CREATE INDEX IF NOT EXISTS idx_posting_lemma ON posting(lemma_id);
CREATE INDEX IF NOT EXISTS idx_site_status ON site(status);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS site (
    id BIGSERIAL PRIMARY KEY,
    url TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('INDEXING', 'INDEXED', 'FAILED')),
    status_time BIGINT NOT NULL,
    last_error TEXT
);

CREATE TABLE IF NOT EXISTS page (
    id BIGSERIAL PRIMARY KEY,
    site_id BIGINT NOT NULL REFERENCES site(id) ON DELETE CASCADE,
    path TEXT NOT NULL,
    code INTEGER NOT NULL,
    content TEXT NOT NULL,
    UNIQUE (site_id, path)
);

CREATE TABLE IF NOT EXISTS lemma (
    id BIGSERIAL PRIMARY KEY,
    site_id BIGINT NOT NULL REFERENCES site(id) ON DELETE CASCADE,
    lemma TEXT NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 0,
    UNIQUE (site_id, lemma)
);

CREATE TABLE IF NOT EXISTS posting (
    id BIGSERIAL PRIMARY KEY,
    page_id BIGINT NOT NULL REFERENCES page(id) ON DELETE CASCADE,
    lemma_id BIGINT NOT NULL REFERENCES lemma(id) ON DELETE CASCADE,
    lemma_rank DOUBLE PRECISION NOT NULL,
    UNIQUE (page_id, lemma_id)
);

CREATE INDEX IF NOT EXISTS idx_posting_lemma ON posting(lemma_id);
CREATE INDEX IF NOT EXISTS idx_site_status ON site(status);
`
