package postgres

import "database/sql"

// The schema is guarded so re-running the bootstrap never drops data:
// the table is created only when absent, and the function/trigger pair
// is replaced in place.
//
// lastEdited is owned entirely by this schema: the column default
// stamps it at insert and update_projects re-stamps it on any update
// of author, name or data that genuinely changes the row. A client can
// never supply its own timestamp.
const schema = `
create table if not exists projects (
  uid varchar(6) primary key,
  auth varchar(18) not null,
  author varchar(25) not null,
  name varchar(100) not null,
  createdAt integer not null default(extract(epoch from current_timestamp::timestamp with time zone)::integer),
  lastEdited integer not null default(extract(epoch from current_timestamp::timestamp with time zone)::integer),
  data text not null
);

create or replace function update_epoch()
returns trigger as $$
begin
  new.lastEdited = extract(epoch from current_timestamp::timestamp with time zone)::integer;
  return new;
end;
$$ language plpgsql;

drop trigger if exists update_projects on projects;

create trigger update_projects
before update of author, name, data on projects
for each row
when (old.* is distinct from new.*)
execute procedure update_epoch();
`

// Migrate applies the projects schema. Safe to run repeatedly.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
