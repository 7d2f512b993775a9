package pgstore

var schemaStatements = []string{
	`create table if not exists car_models (
		model_id text primary key,
		name text not null,
		category text not null,
		hourly_rate_cents bigint not null default 0 check (hourly_rate_cents >= 0),
		daily_rate_cents bigint not null check (daily_rate_cents >= 0),
		seller_id text,
		created_at timestamptz not null default now()
	)`,
	`create index if not exists idx_car_models_seller on car_models(seller_id)`,
	`create table if not exists car_units (
		unit_id text primary key,
		model_id text not null references car_models(model_id),
		number_plate text not null,
		available boolean not null default true,
		created_at timestamptz not null default now(),
		constraint uniq_car_units_number_plate unique (number_plate)
	)`,
	`create index if not exists idx_car_units_model_available on car_units(model_id, available)`,
	`create table if not exists renters (
		renter_id text primary key,
		email text not null,
		display_name text not null default '',
		password_digest text not null,
		role text not null,
		created_at timestamptz not null default now(),
		constraint uniq_renters_email unique (email)
	)`,
	`create table if not exists bookings (
		booking_id text primary key,
		renter_id text not null,
		unit_id text not null references car_units(unit_id),
		start_at timestamptz not null,
		end_at timestamptz not null,
		granularity text not null,
		basis text not null,
		status text not null,
		hourly_rate_cents bigint not null,
		daily_rate_cents bigint not null,
		total_amount_cents bigint not null check (total_amount_cents >= 0),
		fine_cents bigint not null default 0 check (fine_cents >= 0),
		actual_return_at timestamptz,
		metadata jsonb not null default '{}'::jsonb,
		created_at timestamptz not null,
		updated_at timestamptz not null default now(),
		check (start_at < end_at)
	)`,
	`create index if not exists idx_bookings_unit_status on bookings(unit_id, status)`,
	`create index if not exists idx_bookings_renter_status on bookings(renter_id, status)`,
	`create index if not exists idx_bookings_created on bookings(created_at)`,
}
