// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package migration applies the orchestrator's Postgres/pgvector schema
versioned, forward-and-backward SQL changes applied directly through pgx.

# Overview

Migration files are embedded via embed.FS and applied inside pgx
transactions, with the current version tracked in a schema_migrations
table and a Postgres advisory lock serializing concurrent migrator runs.
There is no separate migration engine dependency: the same pgx driver the
knowledge graph store uses to talk to Postgres applies the schema changes.

# Core types

  - Migrator — interface with Up/Down/DownAll/Steps/Goto/Force/Version/
    Status/Info/Close.
  - DefaultMigrator — the Migrator implementation, wrapping a pgxpool.Pool.
  - Config — database URL, migrations table name, connect timeout
    (LockTimeout).
  - MigrationStatus / MigrationInfo — per-migration and summary state.
  - CLI — terminal-facing wrapper exposing RunUp/RunDown/RunStatus/RunInfo.

# Capabilities

  - Factory functions: NewMigratorFromConfig / NewMigratorFromURL build a
    migrator from application config or a raw connection string.
  - BuildDatabaseURL assembles a Postgres connection string from components.
*/
package migration
