package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- CONVERSATION TABLE (one row per user)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS conversation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS current_score ON conversation TYPE int DEFAULT 0 ASSERT $value >= 0;
    DEFINE FIELD IF NOT EXISTS cumulative_score ON conversation TYPE int DEFAULT 0 ASSERT $value >= 0;
    DEFINE FIELD IF NOT EXISTS last_tags ON conversation TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS trust_level ON conversation TYPE int DEFAULT 50 ASSERT $value >= 0 AND $value <= 100;
    DEFINE FIELD IF NOT EXISTS stage ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS message_count ON conversation TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS conversation_cost ON conversation TYPE float DEFAULT 0.0;
    DEFINE FIELD IF NOT EXISTS over_budget ON conversation TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS last_interaction_at ON conversation TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS created_at ON conversation TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON conversation TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS conversation_user ON conversation FIELDS user_id UNIQUE;
    DEFINE INDEX IF NOT EXISTS conversation_stage ON conversation FIELDS stage;

    -- ==========================================================================
    -- CONVERSATION EVENT TABLE (append-only history)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS conversation_event SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation ON conversation_event TYPE record<conversation>;
    DEFINE FIELD IF NOT EXISTS type ON conversation_event TYPE string;
    DEFINE FIELD IF NOT EXISTS metadata ON conversation_event TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON conversation_event TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS event_conversation ON conversation_event FIELDS conversation;
    DEFINE INDEX IF NOT EXISTS event_created ON conversation_event FIELDS created_at;
`
