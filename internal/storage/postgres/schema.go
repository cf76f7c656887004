package postgres

// Schema is the embedded PostgreSQL schema. All statements use IF NOT
// EXISTS so applying it on every open is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS activities (
    id               TEXT PRIMARY KEY,
    action_type      TEXT NOT NULL,
    target_type      TEXT NOT NULL DEFAULT '',
    target_id        TEXT NOT NULL DEFAULT '',
    risk_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
    performed_at     TIMESTAMPTZ NOT NULL,
    success          BOOLEAN NOT NULL DEFAULT TRUE,
    error_message    TEXT NOT NULL DEFAULT '',
    duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_activities_performed_at ON activities(performed_at);
CREATE INDEX IF NOT EXISTS idx_activities_action_type ON activities(action_type, performed_at);
CREATE INDEX IF NOT EXISTS idx_activities_target_id ON activities(target_id, performed_at);

CREATE TABLE IF NOT EXISTS safety_alerts (
    id                 TEXT PRIMARY KEY,
    alert_type         TEXT NOT NULL,
    severity           TEXT NOT NULL,
    message            TEXT NOT NULL DEFAULT '',
    risk_score         DOUBLE PRECISION NOT NULL DEFAULT 0,
    recommended_action TEXT NOT NULL DEFAULT '',
    acknowledged       BOOLEAN NOT NULL DEFAULT FALSE,
    acknowledged_at    TIMESTAMPTZ,
    resolved           BOOLEAN NOT NULL DEFAULT FALSE,
    resolved_at        TIMESTAMPTZ,
    created_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_type_resolved ON safety_alerts(alert_type, resolved);

CREATE TABLE IF NOT EXISTS connections (
    id                 TEXT PRIMARY KEY,
    name               TEXT NOT NULL,
    profile_url        TEXT NOT NULL UNIQUE,
    title              TEXT NOT NULL DEFAULT '',
    company            TEXT NOT NULL DEFAULT '',
    location           TEXT NOT NULL DEFAULT '',
    messages_sent      INTEGER NOT NULL DEFAULT 0,
    messages_received  INTEGER NOT NULL DEFAULT 0,
    posts_engaged      INTEGER NOT NULL DEFAULT 0,
    mutual_connections INTEGER NOT NULL DEFAULT 0,
    quality_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
    engagement_level   TEXT NOT NULL DEFAULT 'none',
    connection_source  TEXT NOT NULL DEFAULT 'manual',
    is_active          BOOLEAN NOT NULL DEFAULT TRUE,
    connected_at       TIMESTAMPTZ NOT NULL,
    last_interaction   TIMESTAMPTZ,
    created_at         TIMESTAMPTZ NOT NULL,
    updated_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_connections_quality ON connections(quality_score DESC);
`
